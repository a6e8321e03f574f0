// internal/backends/models.go
package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrInvalidList = errors.New("INVALID_BACKEND_LIST")

// ReadList reads the backend file: a JSON array of root URLs. Blank entries
// and repeats are dropped, trailing slashes removed, order kept.
func ReadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backend list: %w", err)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidList, path, err)
	}

	seen := make(map[string]struct{}, len(raw))
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSuffix(strings.TrimSpace(u), "/")
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}
