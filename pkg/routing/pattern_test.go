package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty token becomes catch-all", "", "/"},
		{"bare host gets trailing slash", "example.com", "example.com/"},
		{"bare host is lowercased", "Example.COM", "example.com/"},
		{"host with path", "example.com/foo", "example.com/foo"},
		{"host lowercased, path case kept", "Example.COM/Foo", "example.com/Foo"},
		{"host-agnostic path", "/api/", "/api/"},
		{"root only", "/", "/"},
		{"dot segment resolved", "example.com/a/./b", "example.com/a/b"},
		{"dotdot segment resolved", "example.com/a/../b", "example.com/b"},
		{"trailing dot keeps directory shape", "example.com/a/.", "example.com/a/"},
		{"trailing dotdot keeps directory shape", "example.com/a/b/..", "example.com/a/"},
		{"dotdot above root clamps", "/..", "/"},
		{"percent unreserved decoded", "example.com/%7Euser", "example.com/~user"},
		{"percent reserved uppercased", "example.com/a%2fb", "example.com/a%2Fb"},
		{"broken percent kept", "example.com/a%2", "example.com/a%2"},
		{"trailing slash preserved", "example.com/foo/", "example.com/foo/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePattern(tt.raw))
		})
	}
}

func TestNormalizePathDoubleSlash(t *testing.T) {
	// Empty segments are not collapsed.
	assert.Equal(t, "example.com//a", NormalizePattern("example.com//a"))
}
