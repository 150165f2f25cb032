// Package encoding provides the binary/text transforms shared by the
// vaultguard core. Key material and wire blobs cross storage and
// transport boundaries as standard base64.
package encoding

import (
	"encoding/base64"
	"fmt"
)

// ToBase64 encodes raw bytes as standard base64 text.
func ToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// FromBase64 decodes standard base64 text back into raw bytes.
func FromBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encoding: invalid base64: %w", err)
	}
	return b, nil
}
