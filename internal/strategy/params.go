package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidParams = errors.New("invalid algorithm parameters")

// intsParam reads an integer list from a free-form parameter bag. Values
// decoded from JSON arrive as []any of float64.
func intsParam(params map[string]any, key string, def []int) ([]int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return slices.Clone(def), nil
	}
	switch v := raw.(type) {
	case []int:
		return slices.Clone(v), nil
	case []int64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []float64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []any:
		out := make([]int, len(v))
		for i, x := range v {
			n, err := toInt(x)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidParams, key, i, err)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidParams, key, raw)
}

func toInt(x any) (int, error) {
	switch n := x.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	}
	return 0, fmt.Errorf("not a number: %T", x)
}

func validateBands(bands []int) error {
	if len(bands) != len(DefaultBands) {
		return fmt.Errorf("%w: want %d band bounds, got %d", ErrInvalidParams, len(DefaultBands), len(bands))
	}
	for i := 1; i < len(bands); i++ {
		if bands[i] <= bands[i-1] {
			return fmt.Errorf("%w: band bounds must increase", ErrInvalidParams)
		}
	}
	return nil
}
