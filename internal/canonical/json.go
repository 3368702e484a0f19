package canonical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalJSON implements json.Marshaler for Decimal.
// Renders a raw JSON number in the canonical form ("35.5", "10.0") so API
// responses carry the same bytes the hash saw.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler for Decimal.
// Accepts JSON numbers only; exponent notation and quoted strings are
// rejected the same way ParseValue rejects them.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		return fmt.Errorf("canonical: decimal must be a JSON number, got %s", s)
	}
	if strings.ContainsAny(s, "eE") {
		return fmt.Errorf("canonical: exponent notation is not canonical: %s", s)
	}
	v, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler for Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler for Time.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler for Time.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalJSON implements json.Marshaler for Object by emitting canonical
// bytes, so an object rendered into an API response is byte-identical to
// the form that was hashed.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
// Floats outside Decimal precision and nulls are rejected, matching
// ParseValue.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := ParseValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("canonical: expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}
