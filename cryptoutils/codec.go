package cryptoutils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Base64URLEncode encodes b with the URL-safe alphabet and no padding.
func Base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64URLDecode reverses Base64URLEncode. Input is padded with '=' to a
// multiple of four characters before decoding, so padded input is accepted too.
func Base64URLDecode(s string) ([]byte, error) {
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}
