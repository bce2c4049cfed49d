package query

import (
	"encoding/json"
	"fmt"
)

// Project reduces a JSON-marshalable value to the named keys. It is applied
// at the response boundary when a request carried a fields parameter, so the
// stored row shape never dictates what a narrowed response contains.
func Project(v any, columns []string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if val, ok := full[c]; ok {
			out[c] = val
		}
	}
	return out, nil
}

// ProjectSlice applies Project to every element.
func ProjectSlice[T any](items []T, columns []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		m, err := Project(items[i], columns)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
