package routing

import "strings"

// ExtractHost extracts the lowercased host portion of a request authority.
// IPv6 literals keep their brackets so they compare equal to bracketed
// pattern hosts. ok is false when the authority cannot carry a matchable
// host: it contains '/' (reserved as the pattern delimiter), has an
// unterminated '[' literal, has junk after ']', or starts with ':'.
func ExtractHost(hostport string) (host string, ok bool) {
	if strings.IndexByte(hostport, '/') != -1 {
		return "", false
	}
	if hostport == "" {
		return "", true
	}
	if hostport[0] == '[' {
		// Assume an IPv6 numeric address.
		p := strings.IndexByte(hostport, ']')
		if p == -1 {
			return "", false
		}
		if p+1 < len(hostport) && hostport[p+1] != ':' {
			return "", false
		}
		return strings.ToLower(hostport[:p+1]), true
	}
	p := strings.IndexByte(hostport, ':')
	if p == 0 {
		return "", false
	}
	if p == -1 {
		p = len(hostport)
	}
	return strings.ToLower(hostport[:p]), true
}

// Match resolves a request's authority and raw target path to a group
// index. It is a total function: whatever the input, some valid index is
// returned, bounded by the catch-all group. The raw path may still carry
// a query and fragment; both are excluded from matching.
func (t *Table) Match(hostport, rawPath string) int {
	host, ok := ExtractHost(hostport)
	if !ok {
		return t.catchAll
	}

	path := rawPath
	if i := strings.IndexByte(path, '#'); i != -1 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}

	return t.matchHost(host, path)
}

// matchHost runs the tiered lookup for an already-extracted host.
func (t *Table) matchHost(host, path string) int {
	if path == "" || path[0] != '/' {
		// Authority-form or otherwise degenerate target: only the
		// literal "/" shape is eligible, never arbitrary prefixes.
		if g := t.match(host, "/"); g != -1 {
			return g
		}
		return t.catchAll
	}

	if g := t.match(host, path); g != -1 {
		return g
	}

	// Host-agnostic patterns (empty host portion) match on path alone.
	if g := t.match("", path); g != -1 {
		return g
	}

	return t.catchAll
}

// match scans all groups in insertion order and returns the index of the
// longest matching pattern, or -1. Only a strictly longer pattern
// displaces the current best, so equal-length candidates resolve to the
// earliest-inserted group.
func (t *Table) match(host, path string) int {
	res := -1
	best := 0
	for i := range t.groups {
		pattern := t.groups[i].Pattern
		if !patternMatches(pattern, host, path) {
			continue
		}
		if res == -1 || best < len(pattern) {
			best = len(pattern)
			res = i
		}
	}
	return res
}

// patternMatches reports whether pattern matches the host+path pair. A
// pattern without a trailing '/' names a single resource and must equal
// host+path exactly. A pattern with a trailing '/' names a subtree:
// host+path must have it as a prefix, or equal it minus the trailing
// slash so that a request for "/foo" still reaches a "/foo/" group.
func patternMatches(pattern, host, path string) bool {
	if pattern == "" {
		return false
	}
	if pattern[len(pattern)-1] != '/' {
		return len(pattern) == len(host)+len(path) &&
			strings.HasPrefix(pattern, host) &&
			pattern[len(host):] == path
	}

	if len(pattern) >= len(host) &&
		strings.HasPrefix(pattern, host) &&
		strings.HasPrefix(path, pattern[len(host):]) {
		return true
	}

	// Directory request without the trailing slash: pattern "/foo/"
	// matches path "/foo".
	return len(pattern)-1 == len(host)+len(path) &&
		strings.HasPrefix(pattern, host) &&
		pattern[len(host):len(pattern)-1] == path
}
