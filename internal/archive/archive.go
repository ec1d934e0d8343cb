// Package archive packages a result directory into a single zip whose entries
// are renamed after the uploaded document.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaehyun-song/ocr-gateway/internal/common"
)

// Rule maps a result file to its entry name in the archive.
type Rule struct {
	Match  func(relPath string) bool
	Rename func(seed, relPath string) string
}

func suffixRule(suffix string) Rule {
	return Rule{
		Match:  func(rel string) bool { return strings.HasSuffix(rel, suffix) },
		Rename: func(seed, _ string) string { return seed + suffix },
	}
}

// DefaultRules is the entry naming policy, evaluated in order, first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Match:  func(rel string) bool { return strings.HasSuffix(rel, ".md") },
			Rename: func(seed, _ string) string { return seed + ".md" },
		},
		suffixRule("_content_list.json"),
		suffixRule("_middle.json"),
		suffixRule("_model.pdf"),
		suffixRule("_layout.pdf"),
		suffixRule("_spans.pdf"),
		{
			Match: func(rel string) bool {
				return strings.Contains(filepath.ToSlash(rel), "images/")
			},
			Rename: func(seed, rel string) string {
				return "images/" + seed + "_" + filepath.Base(rel)
			},
		},
		{
			Match: func(string) bool { return true },
			Rename: func(seed, rel string) string {
				return seed + "_" + filepath.Base(rel)
			},
		},
	}
}

// EntryName resolves rel through rules; rel is slash- or OS-separated,
// relative to the bundle root.
func EntryName(rules []Rule, seed, rel string) string {
	for _, r := range rules {
		if r.Match(rel) {
			return r.Rename(seed, rel)
		}
	}
	return seed + "_" + filepath.Base(rel)
}

// Builder writes downloadable archives into a fixed output directory.
type Builder struct {
	outDir string
	rules  []Rule
	unique bool
	now    func() time.Time
}

type Option func(*Builder)

// WithUniqueSuffix appends a short random id to archive names. Timestamp-only
// names can collide when two parses of the same document land within a second.
func WithUniqueSuffix() Option {
	return func(b *Builder) { b.unique = true }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBuilder(outDir string, opts ...Option) *Builder {
	b := &Builder{
		outDir: outDir,
		rules:  DefaultRules(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// ArchiveName returns the filename an archive built now would get.
func (b *Builder) ArchiveName(seed string) string {
	name := fmt.Sprintf("%s_parsed_%d", seed, b.now().Unix())
	if b.unique {
		name += "_" + uuid.NewString()[:8]
	}
	return name + ".zip"
}

// Build walks sourceDir recursively and writes every file into one zip at a
// seed-and-timestamp derived path, renaming entries per the naming policy.
func (b *Builder) Build(sourceDir, seed string) (string, error) {
	if err := os.MkdirAll(b.outDir, 0o755); err != nil {
		return "", common.WrapError(err, "create archive dir")
	}
	zipPath := filepath.Join(b.outDir, b.ArchiveName(seed))

	f, err := os.Create(zipPath)
	if err != nil {
		return "", common.WrapError(err, "create archive")
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		return addEntry(zw, path, EntryName(b.rules, seed, rel))
	})
	if err != nil {
		zw.Close()
		os.Remove(zipPath)
		return "", common.WrapError(err, "build archive")
	}
	if err := zw.Close(); err != nil {
		os.Remove(zipPath)
		return "", common.WrapError(err, "finalize archive")
	}
	return zipPath, nil
}

// ZipDir zips src into dst with plain relative-path entry names, no renaming.
func ZipDir(src, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return common.WrapError(err, "create zip")
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addEntry(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		return common.WrapError(err, "zip directory")
	}
	return zw.Close()
}

func addEntry(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
