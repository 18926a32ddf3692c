package results

import (
	"encoding/json"
	"strings"
)

// decodeStoredOutput decodes the verdict JSON stored in a result row.
// Historical rows may be double-encoded (a JSON string containing a JSON
// string), so when the first decode yields a string a second pass is
// attempted. A row that fails to decode degrades to its raw text rather
// than aborting the listing.
func decodeStoredOutput(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return raw
	}

	if inner, ok := value.(string); ok {
		var second any
		if err := json.Unmarshal([]byte(inner), &second); err == nil {
			return second
		}
		return inner
	}

	return value
}
