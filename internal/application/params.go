package application

import (
	"fmt"
)

// Limit bounds for listing tools. A requested limit is always clamped into
// [1, max]; a missing limit falls back to the tool's default.
const (
	maxListLimit   = 200
	maxSearchLimit = 100

	defaultListLimit   = 50
	defaultSearchLimit = 20
)

// getStringParam extracts a string parameter from the arguments map.
// Returns an error if the parameter is required but missing or not a string.
func getStringParam(args map[string]interface{}, name string, required bool) (string, error) {
	value, exists := args[name]
	if !exists {
		if required {
			return "", fmt.Errorf("missing required parameter: %s", name)
		}
		return "", nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", name)
	}

	return strValue, nil
}

// getIntParam extracts an integer parameter from the arguments map.
// Returns an error if the parameter is required but missing or not a number.
func getIntParam(args map[string]interface{}, name string, required bool) (int, error) {
	value, exists := args[name]
	if !exists {
		if required {
			return 0, fmt.Errorf("missing required parameter: %s", name)
		}
		return 0, nil
	}

	// Handle both float64 (from JSON) and int
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		// A present parameter with the wrong type is an error even when
		// the parameter itself is optional
		return 0, fmt.Errorf("parameter %s must be an integer", name)
	}
}

// getOptionalStringParam extracts an optional string parameter, preserving
// absence as nil so update operations can tell "not provided" from "".
func getOptionalStringParam(args map[string]interface{}, name string) (*string, error) {
	value, exists := args[name]
	if !exists {
		return nil, nil
	}

	strValue, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("parameter %s must be a string", name)
	}

	return &strValue, nil
}

// getOptionalIntParam extracts an optional integer parameter, preserving
// absence as nil.
func getOptionalIntParam(args map[string]interface{}, name string) (*int, error) {
	value, exists := args[name]
	if !exists {
		return nil, nil
	}

	switch v := value.(type) {
	case float64:
		intValue := int(v)
		return &intValue, nil
	case int:
		return &v, nil
	default:
		return nil, fmt.Errorf("parameter %s must be an integer", name)
	}
}

// getLimitParam extracts the "limit" parameter, applying the default when
// absent and clamping the result into [1, max].
func getLimitParam(args map[string]interface{}, def, max int) (int, error) {
	limit := def

	if value, exists := args["limit"]; exists {
		switch v := value.(type) {
		case float64:
			limit = int(v)
		case int:
			limit = v
		default:
			return 0, fmt.Errorf("parameter limit must be an integer")
		}
	}

	return clampLimit(limit, max), nil
}

// clampLimit bounds a limit into [1, max].
func clampLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}
