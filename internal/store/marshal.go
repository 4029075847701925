package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/persistsql/internal/ir"
)

// marshalClauses converts clause argument names to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalClauses(clauses []string) (string, error) {
	arr := make(ir.IRArray, 0, len(clauses))
	for _, c := range clauses {
		arr = append(arr, ir.IRString(c))
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal clauses: %w", err)
	}
	return string(data), nil
}

// unmarshalClauses parses canonical JSON TEXT to clause names.
func unmarshalClauses(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var clauses []string
	if err := json.Unmarshal([]byte(data), &clauses); err != nil {
		return nil, fmt.Errorf("unmarshal clauses: %w", err)
	}
	return clauses, nil
}

// toParam converts an IRValue to a SQLite parameter. Arrays and objects
// are stored as canonical JSON TEXT.
func toParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull, nil:
		return nil, nil
	case ir.IRArray, ir.IRObject:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type: %T", v)
	}
}

// fromColumn converts a scanned SQLite value to an IRValue. The IR has no
// floats, so REAL values are rendered as their shortest decimal text.
func fromColumn(v any) ir.IRValue {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}
	case int64:
		return ir.IRInt(val)
	case bool:
		return ir.IRBool(val)
	case float64:
		return ir.IRString(strconv.FormatFloat(val, 'g', -1, 64))
	case []byte:
		return ir.IRString(string(val))
	case string:
		return ir.IRString(val)
	default:
		return ir.IRString(fmt.Sprint(val))
	}
}
