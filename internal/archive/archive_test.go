package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestEntryName_Policy(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		rel  string
		want string
	}{
		{"report.md", "doc.md"},
		{"report_content_list.json", "doc_content_list.json"},
		{"report_middle.json", "doc_middle.json"},
		{"report_model.pdf", "doc_model.pdf"},
		{"report_layout.pdf", "doc_layout.pdf"},
		{"report_spans.pdf", "doc_spans.pdf"},
		{"images/fig1.png", "images/doc_fig1.png"},
		{"sub/images/fig2.jpg", "images/doc_fig2.jpg"},
		{"notes.txt", "doc_notes.txt"},
		{"sub/other.json", "doc_other.json"},
	}
	for _, c := range cases {
		if got := EntryName(rules, "doc", c.rel); got != c.want {
			t.Errorf("EntryName(%q) = %q, want %q", c.rel, got, c.want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBuild_RenamesEntries(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "report.md"), "# report")
	writeFile(t, filepath.Join(src, "report_content_list.json"), "[]")
	writeFile(t, filepath.Join(src, "images", "fig1.png"), "png")

	b := NewBuilder(t.TempDir())
	zipPath, err := b.Build(src, "doc")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := zipNames(t, zipPath)
	want := []string{"doc.md", "doc_content_list.json", "images/doc_fig1.png"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// Two builds of the same source and seed at different timestamps must not
// collide on the archive name.
func TestBuild_NonCollidingNames(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "report.md"), "x")

	ts := time.Unix(1700000000, 0)
	b := NewBuilder(t.TempDir(), WithClock(func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}))

	first, err := b.Build(src, "doc")
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := b.Build(src, "doc")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first == second {
		t.Errorf("archive names collided: %s", first)
	}
}

func TestBuild_UniqueSuffixWithinSameSecond(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	b := NewBuilder(t.TempDir(), WithUniqueSuffix(), WithClock(func() time.Time { return fixed }))

	if b.ArchiveName("doc") == b.ArchiveName("doc") {
		t.Error("unique-suffix names collided within one second")
	}
}

func TestZipDir_PlainEntries(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "app.log"), "line")
	writeFile(t, filepath.Join(src, "sub", "debug.log"), "line")

	dst := filepath.Join(t.TempDir(), "logs.zip")
	if err := ZipDir(src, dst); err != nil {
		t.Fatalf("ZipDir failed: %v", err)
	}

	got := zipNames(t, dst)
	want := []string{"app.log", "sub/debug.log"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("entries = %v, want %v", got, want)
	}
}
