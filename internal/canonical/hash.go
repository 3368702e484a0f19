package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of v's canonical
// bytes. The 64-character result is the wire form of every chain hash.
func SHA256Hex(v Value) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// MustSHA256Hex is like SHA256Hex but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSHA256Hex(v Value) string {
	h, err := SHA256Hex(v)
	if err != nil {
		panic(err)
	}
	return h
}
