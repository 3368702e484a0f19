package store

import (
	"fmt"

	"github.com/verist/sitechain/internal/canonical"
)

// marshalDetail converts an audit detail Object to canonical JSON TEXT for
// storage. Uses RFC 8785 canonical JSON so the stored bytes are identical
// to the bytes that were hashed. A nil detail stores as "{}" to keep the
// column NOT NULL.
func marshalDetail(detail canonical.Object) (string, error) {
	if detail == nil {
		detail = canonical.Object{}
	}
	data, err := canonical.MarshalCanonical(detail)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

// unmarshalDetail parses canonical JSON TEXT back into an Object.
// Goes through canonical.ParseValue so integers stay int64 and fractional
// numbers stay exact; plain json.Unmarshal would widen both to float64.
func unmarshalDetail(data string) (canonical.Object, error) {
	if data == "" || data == "{}" {
		return canonical.Object{}, nil
	}
	v, err := canonical.ParseValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal detail: %w", err)
	}
	obj, ok := v.(canonical.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal detail: expected object, got %T", v)
	}
	return obj, nil
}
