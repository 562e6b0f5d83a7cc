package request

import (
	"bytes"
	"encoding/json"
)

// ParseJSON flattens a JSON object into string values. Strings are kept as
// is, everything else keeps its JSON text. Anything that is not an object
// yields an empty map.
func ParseJSON(body []byte) map[string]string {
	out := map[string]string{}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return out
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		if string(v) == "null" {
			continue
		}
		out[k] = string(v)
	}
	return out
}
