package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
)

// GetStringParam safely gets a string parameter from arguments.
// Numbers are accepted and formatted; null counts as absent.
func GetStringParam(arguments map[string]interface{}, key string, required bool) (string, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return "", mcperrors.NewMissingParameter(key)
		}
		return "", nil
	}

	switch v := val.(type) {
	case string:
		if v == "" && required {
			return "", mcperrors.NewMissingParameter(key)
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", mcperrors.NewInvalidInput(fmt.Sprintf("invalid type for argument %s: expected string, got %T", key, val))
	}
}

// GetStringParamDefault returns the argument, or def when it is absent or empty.
func GetStringParamDefault(arguments map[string]interface{}, key, def string) (string, error) {
	s, err := GetStringParam(arguments, key, false)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// GetIntParam safely gets an integer parameter from arguments
func GetIntParam(arguments map[string]interface{}, key string, required bool) (int64, error) {
	val, ok := arguments[key]
	if !ok || val == nil {
		if required {
			return 0, mcperrors.NewMissingParameter(key)
		}
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, mcperrors.NewInvalidInput(fmt.Sprintf("invalid value for argument %s: expected an integer, got %v", key, v))
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, mcperrors.NewInvalidInput(fmt.Sprintf("invalid value for argument %s: expected an integer, got %s", key, v))
		}
		return n, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, mcperrors.NewInvalidInput(fmt.Sprintf("invalid value for argument %s: expected an integer, got %q", key, v))
		}
		return n, nil
	default:
		return 0, mcperrors.NewInvalidInput(fmt.Sprintf("invalid type for argument %s: expected number, got %T", key, val))
	}
}

// GetIntParamDefault returns the argument, or def when it is absent.
func GetIntParamDefault(arguments map[string]interface{}, key string, def int64) (int64, error) {
	if val, ok := arguments[key]; !ok || val == nil {
		return def, nil
	}
	return GetIntParam(arguments, key, false)
}
