package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// contentListSchema is the shape the model gives its content list: an array
// of blocks, each at least carrying a type and a page index.
const contentListSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["type"],
    "properties": {
      "type": {"type": "string"},
      "page_idx": {"type": "integer", "minimum": 0}
    }
  }
}`

var contentListCompiled = jsonschema.MustCompileString("content_list.json", contentListSchema)

// checkContentList validates the parse bundle's *_content_list.json against
// the expected shape. Mismatches are logged, never fatal: the bundle is
// archived as-is either way.
func (p *Pipeline) checkContentList(resultDir string) {
	entries, err := os.ReadDir(resultDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_content_list.json") {
			continue
		}
		path := filepath.Join(resultDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("pipeline.content_list.unreadable", "path", path, "error", err)
			return
		}
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			p.logger.Warn("pipeline.content_list.not_json", "path", path, "error", err)
			return
		}
		if err := contentListCompiled.Validate(doc); err != nil {
			p.logger.Warn("pipeline.content_list.schema_mismatch", "path", path, "error", err)
		}
		return
	}
}
