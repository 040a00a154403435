package load

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

type jsonPathsFile struct {
	JSONPaths []string `json:"jsonpaths"`
}

var (
	bracketKey = regexp.MustCompile(`\[\s*(?:'([^']*)'|"([^"]*)")\s*\]`)
	simpleKey  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseJSONPaths reads a JSON-path mapping file ({"jsonpaths": [...]}) and
// returns its paths in dot notation, e.g. $['firstName'] becomes $.firstName.
func ParseJSONPaths(data []byte) ([]string, error) {
	var f jsonPathsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse jsonpaths file: %w", err)
	}
	if len(f.JSONPaths) == 0 {
		return nil, fmt.Errorf("jsonpaths file lists no paths")
	}

	paths := make([]string, len(f.JSONPaths))
	for i, p := range f.JSONPaths {
		if !strings.HasPrefix(p, "$") {
			return nil, fmt.Errorf("jsonpath %d (%q) must start with $", i, p)
		}
		paths[i] = bracketKey.ReplaceAllStringFunc(p, func(m string) string {
			sub := bracketKey.FindStringSubmatch(m)
			key := sub[1] + sub[2]
			if simpleKey.MatchString(key) {
				return "." + key
			}
			return `."` + key + `"`
		})
	}
	return paths, nil
}

// AutoPaths maps each column to the document key of the same name.
func AutoPaths(table *core.TableDef) []string {
	paths := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		paths[i] = "$." + c.Name
	}
	return paths
}

// CheckPaths verifies a mapping supplies exactly one path per column.
func CheckPaths(paths []string, table *core.TableDef) error {
	if len(paths) != len(table.Columns) {
		return fmt.Errorf("jsonpaths lists %d paths but %s has %d columns",
			len(paths), table.Name, len(table.Columns))
	}
	return nil
}
