package gateway

import (
	"strings"

	"github.com/roach88/vendorsync/internal/record"
)

const upperhex = "0123456789ABCDEF"

// EncodeKey percent-encodes every byte of key outside the RFC 3986
// unreserved set [A-Za-z0-9-._~], so "#FOO" becomes "%23FOO" and "A/B"
// becomes "A%2FB". The result is safe as a single path segment.
func EncodeKey(key record.EntityKey) string {
	s := string(key)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
