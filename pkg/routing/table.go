package routing

import (
	"errors"
	"strings"
)

// Group is an ordered pool of backends reachable via one pattern. The
// pattern is unique within a table and lowercase in its host portion; the
// pool keeps backends in directive order (the load-balancing candidate set).
type Group struct {
	Pattern  string
	Backends []Backend
}

// Builder accumulates backend/pattern mappings while directives are
// parsed. It is used single-threaded during startup or reload and must
// not be shared between goroutines.
type Builder struct {
	groups []Group
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddMapping registers addr under every pattern in rawPatterns, a
// ':'-separated list of raw tokens. Splitting yields at least one token
// (possibly the empty string, which normalizes to the catch-all "/").
// Patterns seen before merge into their existing group; new patterns
// append a group, so first-seen order is preserved for tie-breaking.
func (b *Builder) AddMapping(addr Backend, rawPatterns string) {
	for _, raw := range strings.Split(rawPatterns, ":") {
		pattern := NormalizePattern(raw)
		merged := false
		for i := range b.groups {
			if b.groups[i].Pattern == pattern {
				b.groups[i].Backends = append(b.groups[i].Backends, addr)
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		b.groups = append(b.groups, Group{Pattern: pattern, Backends: []Backend{addr}})
	}
}

// Build freezes the accumulated groups into an immutable Table. The
// catch-all index is the group whose pattern is exactly "/"; when no such
// group exists the first group serves as the deterministic fallback. An
// empty builder cannot produce a table.
func (b *Builder) Build() (*Table, error) {
	if len(b.groups) == 0 {
		return nil, errors.New("routing: no backend groups")
	}
	catchAll := 0
	for i := range b.groups {
		if b.groups[i].Pattern == "/" {
			catchAll = i
			break
		}
	}
	groups := make([]Group, len(b.groups))
	for i, g := range b.groups {
		backends := make([]Backend, len(g.Backends))
		copy(backends, g.Backends)
		groups[i] = Group{Pattern: g.Pattern, Backends: backends}
	}
	return &Table{groups: groups, catchAll: catchAll}, nil
}

// Table is an ordered, read-only collection of backend groups built once
// per configuration generation. It is safe for unsynchronized concurrent
// reads; reloads replace the whole table instead of mutating it.
type Table struct {
	groups   []Group
	catchAll int
}

// Len returns the number of groups.
func (t *Table) Len() int {
	return len(t.groups)
}

// Group returns the group at index i. The index must come from Match,
// CatchAll, or be < Len(). Callers must not mutate the returned pool.
func (t *Table) Group(i int) Group {
	return t.groups[i]
}

// CatchAll returns the index of the designated fallback group.
func (t *Table) CatchAll() int {
	return t.catchAll
}
