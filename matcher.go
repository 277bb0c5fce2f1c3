package requesthook

import (
	"fmt"
	"regexp"
)

// matcher decides whether a request path bypasses observation. It is
// built once and then only read, so concurrent use needs no locking.
type matcher struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

func newMatcher(paths []string, patterns []string) (*matcher, error) {
	m := &matcher{
		exact: make(map[string]struct{}, len(paths)),
	}

	for _, path := range paths {
		m.exact[path] = struct{}{}
	}

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, re)
	}

	return m, nil
}

// excluded reports whether path is an exact member of the excluded set or
// matches any exclusion pattern. The path is compared as given, no
// normalization of case or trailing slashes.
func (m *matcher) excluded(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}

	for _, re := range m.patterns {
		if re.MatchString(path) {
			return true
		}
	}

	return false
}
