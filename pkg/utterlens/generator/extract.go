package generator

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON returns the first well-formed JSON object embedded in text.
// Models often wrap the object in prose or code fences; everything outside
// the object is ignored. Braces inside JSON strings do not confuse the
// scan because each candidate is handed to a real decoder.
func ExtractJSON(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if len(raw) > 0 && raw[0] == '{' {
			return bytes.TrimSpace(raw), true
		}
	}
	return nil, false
}
