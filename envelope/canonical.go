package envelope

import "strings"

// NormalizePath strips exactly one trailing slash unless the path is "/".
func NormalizePath(path string) string {
	if path != "/" && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// CanonicalMessage returns the exact bytes that are signed for an exchange:
// the normalized logical path, a newline, then the body as sent on the wire.
func CanonicalMessage(path string, body []byte) []byte {
	p := NormalizePath(path)
	msg := make([]byte, 0, len(p)+1+len(body))
	msg = append(msg, p...)
	msg = append(msg, '\n')
	msg = append(msg, body...)
	return msg
}
