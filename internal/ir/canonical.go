package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON. It is the only
// encoding used for content hashes.
//
// Differences from json.Marshal:
//   - object keys are sorted by UTF-16 code units
//   - <, > and & are not HTML-escaped
//   - strings (keys included) are NFC normalized
//   - floats and null are errors
//
// v may be an IRValue or plain Go values as accepted by FromGo, without
// nil and without floats.
func MarshalCanonical(v any) ([]byte, error) {
	iv, err := fromGo(v, strictRules)
	if err != nil {
		return nil, fmt.Errorf("canonical JSON: %w", err)
	}
	var buf bytes.Buffer
	if err := appendCanonical(&buf, iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case IRNull:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case IRString:
		return appendCanonicalString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := appendCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// appendCanonicalString escapes only control characters, backslash and
// quote. U+2028 and U+2029 stay literal.
func appendCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(unescapeLineSeparators(bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an
// odd run of backslashes is literal text ("\\u2028") and is kept.
func unescapeLineSeparators(data []byte) []byte {
	const escape = `\u202`
	if !bytes.Contains(data, []byte(escape)) {
		return data
	}

	out := make([]byte, 0, len(data))
	odd := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && !odd && bytes.HasPrefix(data[i:], []byte(escape)) && i+6 <= len(data) {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		odd = c == '\\' && !odd
		out = append(out, c)
	}
	return out
}
