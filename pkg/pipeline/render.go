package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/vpcmap/pkg/render"
)

// WriteArtifacts writes each artifact to dir as [OutputName] and returns
// the written paths in format order.
func WriteArtifacts(dir string, terms []string, artifacts map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, format := range render.ValidFormats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := filepath.Join(dir, OutputName(terms, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
