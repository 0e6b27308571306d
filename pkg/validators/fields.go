package validators

import (
	"encoding/json"
	"errors"
	"slices"
)

var ErrInvalidUpdates = errors.New("Invalid updates!")

// UpdateFields decodes a JSON object body and makes sure every key is in allowed.
// One unknown key rejects the whole update.
func UpdateFields(body []byte, allowed ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	for k := range fields {
		if !slices.Contains(allowed, k) {
			return nil, ErrInvalidUpdates
		}
	}

	return fields, nil
}
