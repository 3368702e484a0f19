package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the kinds that may appear in canonical
// form. Only String, Int, Bool, Decimal, Date, Time, Array, and Object
// implement it. There is no float kind: binary floating point does not
// render identically across implementations. There is no null kind:
// absence is encoded as an empty string by callers that need a sentinel.
type Value interface {
	canonicalValue() // sealed
}

// String is a Unicode string value. NFC normalization happens at
// serialization time, not construction time.
type String string

func (String) canonicalValue() {}

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) canonicalValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) canonicalValue() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) canonicalValue() {}

// Object is a map of string keys to values. Use SortedKeys for
// deterministic iteration.
type Object map[string]Value

func (Object) canonicalValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: sort.Strings compares UTF-8 bytes, which produces a DIFFERENT
// order for keys outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as RFC 8785 requires.
// utf16.Encode handles surrogate pairs; byte comparison would not.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// ParseValue decodes external JSON into a Value tree.
// Null is rejected, exponent notation is rejected, and fractional numbers
// must fit Decimal's two-digit precision: anything looser would let two
// implementations disagree on the canonical bytes for the same content.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}
	if dec.More() {
		return nil, errors.New("canonical: trailing data after JSON value")
	}
	return fromJSON(raw)
}

func fromJSON(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, errors.New("canonical: null is forbidden; encode absence as an empty string")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return parseNumber(string(val))
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			cv, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			cv, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("canonical: unsupported type %T", v)
	}
}

func parseNumber(s string) (Value, error) {
	if strings.ContainsAny(s, "eE") {
		return nil, fmt.Errorf("canonical: exponent notation is not canonical: %s", s)
	}
	if strings.Contains(s, ".") {
		d, err := ParseDecimal(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("canonical: integer out of int64 range: %s", s)
	}
	return Int(n), nil
}
