package metastore

import "strings"

const hexDigits = "0123456789ABCDEF"

// Escape makes a path safe for a tab-separated line. Control bytes, the
// backslash and DEL become \xHH; every other byte is kept as is, so paths
// need not be valid UTF-8.
func Escape(path string) string {
	if !needsEscape(path) {
		return path
	}

	var b strings.Builder
	b.Grow(len(path) + 8)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if escapable(c) {
			b.WriteString(`\x`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape reverses Escape. A backslash that does not start a \xHH sequence
// is a literal backslash, which is how older stores wrote it.
func Unescape(token string) string {
	if strings.IndexByte(token, '\\') < 0 {
		return token
	}

	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c == '\\' && i+3 < len(token) && token[i+1] == 'x' {
			hi, okHi := unhex(token[i+2])
			lo, okLo := unhex(token[i+3])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		if escapable(s[i]) {
			return true
		}
	}
	return false
}

func escapable(c byte) bool {
	return c < 0x20 || c == '\\' || c == 0x7F
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
