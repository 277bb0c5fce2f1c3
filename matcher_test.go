package requesthook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		paths    []string
		patterns []string
		path     string
		excluded bool
	}{
		{
			name:     "exact match",
			paths:    []string{"/bye"},
			path:     "/bye",
			excluded: true,
		},
		{
			name:     "no match",
			paths:    []string{"/bye"},
			patterns: []string{`^/\d+$`},
			path:     "/hey",
			excluded: false,
		},
		{
			name:     "pattern match",
			patterns: []string{`^/\d+$`},
			path:     "/123",
			excluded: true,
		},
		{
			name:     "pattern does not match partial",
			patterns: []string{`^/\d+$`},
			path:     "/123abc",
			excluded: false,
		},
		{
			name:     "trailing slash is significant",
			paths:    []string{"/bye"},
			path:     "/bye/",
			excluded: false,
		},
		{
			name:     "case is significant",
			paths:    []string{"/bye"},
			path:     "/Bye",
			excluded: false,
		},
		{
			name:     "either rule suffices",
			paths:    []string{"/bye"},
			patterns: []string{`^/\d+$`},
			path:     "/42",
			excluded: true,
		},
		{
			name:     "empty configuration excludes nothing",
			path:     "/",
			excluded: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := newMatcher(tt.paths, tt.patterns)
			require.NoError(t, err)

			assert.Equal(t, tt.excluded, m.excluded(tt.path))
		})
	}
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := newMatcher(nil, []string{`[invalid`})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}
