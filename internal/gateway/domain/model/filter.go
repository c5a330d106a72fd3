package model

import (
	"encoding/json"
	"strings"

	"docbase/internal/shared/errors"
)

// ParseFilter decodes a caller-supplied JSON string into an equality filter.
// Malformed JSON is a client error, not a server fault. Keys starting with
// '$' are rejected so callers cannot smuggle store operators through the
// filter.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}, nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.NewValidationError("filters must be a JSON object of field/value pairs").
			WithCause(err)
	}

	filter := make(Filter, len(parsed))
	for key, value := range parsed {
		if strings.HasPrefix(key, "$") {
			return nil, errors.NewValidationError("filter keys must not start with '$'").
				WithDetail("key", key)
		}
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			return nil, errors.NewValidationError("filter values must be scalar").
				WithDetail("key", key)
		}
		filter[key] = value
	}
	return filter, nil
}
