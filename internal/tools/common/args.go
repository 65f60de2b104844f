package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RequiredString returns a non-blank string argument.
func RequiredString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}
	return s, nil
}

// OptionalString returns a string argument or def when it is absent.
func OptionalString(args map[string]interface{}, name, def string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return def
}

// OptionalBool accepts a boolean or the strings "true" and "false".
func OptionalBool(args map[string]interface{}, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func toInt(v interface{}, name string) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

// RequiredInt returns an integer argument. JSON numbers arrive as float64
// and must be integral.
func RequiredInt(args map[string]interface{}, name string) (int64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", name)
	}
	return toInt(v, name)
}

// OptionalInt returns an integer argument or def when it is absent.
func OptionalInt(args map[string]interface{}, name string, def int64) (int64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	return toInt(v, name)
}

// OptionalIntPtr returns nil when the argument is absent.
func OptionalIntPtr(args map[string]interface{}, name string) (*int64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	i, err := toInt(v, name)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// StringList accepts an array of strings, a JSON array string or a
// comma-separated string. Blank entries are dropped. A missing argument
// yields nil.
func StringList(args map[string]interface{}, name string) ([]string, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var items []string
			if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
				return nil, fmt.Errorf("%s must be a JSON array of strings: %w", name, err)
			}
			return compact(items), nil
		}
		return compact(strings.Split(v, ",")), nil
	case []interface{}:
		items := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			items = append(items, s)
		}
		return compact(items), nil
	default:
		return nil, fmt.Errorf("%s must be a list of strings", name)
	}
}

func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Values2D parses a required two-dimensional array of cell values, given
// either as an array of arrays or as a JSON string holding one. Cells must
// be strings, numbers, booleans or null.
func Values2D(args map[string]interface{}, name string) ([][]interface{}, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s is required", name)
	}
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("%s must be a 2D array: %w", name, err)
		}
		raw = decoded
	}

	rows, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a 2D array", name)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}

	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		row, ok := r.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an array", name, i)
		}
		for j, cell := range row {
			switch cell.(type) {
			case nil, string, float64, bool, int, int64, json.Number:
			default:
				return nil, fmt.Errorf("%s[%d][%d] must be a string, number, boolean or null", name, i, j)
			}
		}
		values[i] = row
	}
	return values, nil
}

// JSONObject parses an optional object argument given either as an object or
// as a JSON string.
func JSONObject(args map[string]interface{}, name string) (map[string]interface{}, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", name, err)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", name)
	}
}
