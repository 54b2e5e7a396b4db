// Package statefile loads initial state trees from disk for tooling that
// constructs stores from configuration, such as the pathstore CLI.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// Load reads a state tree from path. The format is chosen by extension:
// .json is decoded with encoding/json, .yaml and .yml with goccy/go-yaml.
// Decoded containers are normalized to map[string]any and []any so the
// store's path resolution rules hold for every node.
func Load(path string) (pathstore.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses data in the format named by ext (".json", ".yaml", ".yml").
func Decode(data []byte, ext string) (pathstore.Tree, error) {
	var raw any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json state: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml state: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported state file extension %q", ext)
	}

	tree, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("state file root must be a mapping, got %T", raw)
	}
	return tree, nil
}

// normalize rewrites decoded containers into the store's node types.
func normalize(v any) any {
	switch node := v.(type) {
	case map[string]any:
		next := make(map[string]any, len(node))
		for k, val := range node {
			next[k] = normalize(val)
		}
		return next
	case map[any]any:
		next := make(map[string]any, len(node))
		for k, val := range node {
			next[fmt.Sprint(k)] = normalize(val)
		}
		return next
	case []any:
		next := make([]any, len(node))
		for i, val := range node {
			next[i] = normalize(val)
		}
		return next
	default:
		return v
	}
}
