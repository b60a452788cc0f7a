package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrBadCredentials = errors.New("unparseable credentials")

// Credentials arrive in three shapes: a raw cookie string, a JSON array of
// {name, value} pairs, or a JSON object of name -> value. The shape is
// resolved once here, at the ingress boundary, into a single canonical
// cookie string; nothing downstream re-sniffs the format.
func NormalizeCredentials(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	switch raw[0] {
	case '[':
		var pairs []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadCredentials, err)
		}
		parts := make([]string, 0, len(pairs))
		for _, p := range pairs {
			if p.Name == "" {
				continue
			}
			parts = append(parts, p.Name+"="+p.Value)
		}
		return strings.Join(parts, "; "), nil

	case '{':
		var obj map[string]string
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadCredentials, err)
		}
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+"="+obj[name])
		}
		return strings.Join(parts, "; "), nil

	default:
		return raw, nil
	}
}
