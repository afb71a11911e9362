package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flowmetrics/semgraph/pkg/logger"
)

// LoadDocuments reads every .json file in dir into a RawDocument. Files are
// processed in lexical order so repeated builds see identical input
// ordering. The document's "source" field names the upstream feed; when it
// is absent the file stem is used.
func LoadDocuments(dir string) ([]RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]RawDocument, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		source, _ := fields["source"].(string)
		if source == "" {
			source = strings.TrimSuffix(name, ".json")
		}

		docs = append(docs, RawDocument{
			FileSource: name,
			Source:     source,
			Fields:     fields,
		})
	}

	logger.Info("[Extract] Loaded documents", "dir", dir, "count", len(docs))
	return docs, nil
}
