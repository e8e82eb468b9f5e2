package routing

import "strings"

// NormalizePattern turns one raw "host/path" token into its canonical
// pattern string. A token without '/' is a bare host matching everything
// under it, so "/" is appended; this also turns the empty token into the
// catch-all pattern "/". The host portion is lowercased, the path portion
// gets percent-encoding and dot-segment normalization.
func NormalizePattern(raw string) string {
	slash := strings.IndexByte(raw, '/')
	if slash == -1 {
		return strings.ToLower(raw) + "/"
	}
	return strings.ToLower(raw[:slash]) + normalizePath(raw[slash:])
}

// normalizePath canonicalizes an absolute path: percent-encoded unreserved
// characters are decoded, remaining percent-encodings get uppercase hex,
// and "." / ".." segments are resolved. The input must start with '/'.
func normalizePath(p string) string {
	return removeDotSegments(normalizePercent(p))
}

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func hexVal(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}

func normalizePercent(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '%' || i+2 >= len(p) {
			b.WriteByte(c)
			continue
		}
		hi := hexVal(p[i+1])
		lo := hexVal(p[i+2])
		if hi == -1 || lo == -1 {
			// Broken percent-encoding is copied through untouched.
			b.WriteByte(c)
			continue
		}
		if d := byte(hi<<4 | lo); isUnreserved(d) {
			b.WriteByte(d)
		} else {
			b.WriteByte('%')
			b.WriteByte(upperhex[hi])
			b.WriteByte(upperhex[lo])
		}
		i += 2
	}
	return b.String()
}

// removeDotSegments resolves "." and ".." path segments (RFC 3986 5.2.4).
// A trailing "." or ".." keeps the result directory-shaped.
func removeDotSegments(p string) string {
	segs := strings.Split(p[1:], "/")
	out := make([]string, 0, len(segs))
	trailing := false
	for i, s := range segs {
		last := i == len(segs)-1
		switch s {
		case ".":
			trailing = trailing || last
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			trailing = trailing || last
		default:
			out = append(out, s)
		}
	}
	res := "/" + strings.Join(out, "/")
	if trailing && !strings.HasSuffix(res, "/") {
		res += "/"
	}
	return res
}
