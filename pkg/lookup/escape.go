package lookup

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// EscapeCode percent-encodes every byte of code outside the RFC 3986
// unreserved set, so the result is always a single path segment.
// url.PathEscape is not used because it keeps sub-delims such as '+', ';'
// and '=' literal, which some PHP routers rewrite.
func EscapeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code) * 3)
	for i := 0; i < len(code); i++ {
		c := code[i]
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

// UnescapeCode reverses EscapeCode.
func UnescapeCode(segment string) (string, error) {
	return url.PathUnescape(segment)
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
