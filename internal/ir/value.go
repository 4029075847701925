package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is a constrained value: a bound preview parameter, a preview
// row column or a report field.
//
// This is a sealed interface. Value kinds:
//   - IRNull
//   - IRString
//   - IRInt (int64; there is no float kind)
//   - IRBool
//   - IRArray
//   - IRObject
type IRValue interface {
	irValue() // Marker method - seals interface to this package
}

// IRNull is an explicit null.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString is a string value.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer value.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject maps string keys to values. Use SortedKeys for deterministic
// iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units), which
// differs from Go's UTF-8 byte order for characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// MarshalJSON implements json.Marshaler for IRObject with RFC 8785 key
// order. This is not canonical marshaling; hashes use MarshalCanonical.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRArray:
		return marshalIRArray(val)
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

func marshalIRArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalIRValue decodes JSON into an IRValue with strict validation:
// floats and null are rejected at any depth.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	return decodeJSON(data, strictRules)
}

// ParseJSON decodes JSON into an IRValue. Null decodes to IRNull; floats
// are rejected.
func ParseJSON(data []byte) (IRValue, error) {
	return decodeJSON(data, lenientRules)
}

func decodeJSON(data []byte, rules decodeRules) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromGo(raw, rules)
}

// decodeRules selects which decoded Go values fromGo accepts.
type decodeRules struct {
	nulls          bool // nil becomes IRNull
	integralFloats bool // 3.0 becomes IRInt(3)
}

var (
	lenientRules = decodeRules{nulls: true, integralFloats: true}
	strictRules  = decodeRules{}
)

// FromGo converts a value decoded by encoding/json or yaml.v3 into an
// IRValue. Nil becomes IRNull. Integral floats become IRInt, since YAML
// and untyped JSON decode "3.0" as a float; other floats are errors.
func FromGo(v any) (IRValue, error) {
	return fromGo(v, lenientRules)
}

func fromGo(v any, rules decodeRules) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		if !rules.nulls {
			return nil, fmt.Errorf("null is not allowed here: only string, int, bool, array, object")
		}
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float64:
		if !rules.integralFloats || val != math.Trunc(val) || math.Abs(val) > 1<<53 {
			return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
		}
		return IRInt(int64(val)), nil
	case float32:
		return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
	case json.Number:
		if strings.ContainsAny(string(val), ".eE") {
			return nil, fmt.Errorf("floats are forbidden in IR: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := fromGo(elem, rules)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := fromGo(elem, rules)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ParseBinding parses a "name=value" preview binding.
//
// The value is read as JSON when it is valid JSON ("42", "true",
// "\"x\"", "null"); anything else is taken as a plain string, so
// "name=widget" binds IRString("widget"). Floats are rejected.
func ParseBinding(s string) (string, IRValue, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("binding %q: expected name=value", s)
	}
	if !json.Valid([]byte(raw)) {
		return name, IRString(raw), nil
	}
	v, err := ParseJSON([]byte(raw))
	if err != nil {
		return "", nil, fmt.Errorf("binding %q: %w", name, err)
	}
	return name, v, nil
}
