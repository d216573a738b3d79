package chatstate

import (
	"regexp"
	"sort"
	"strings"
)

// ListUsers returns usernames, sorted, matching a glob-style pattern where
// '*' means "any sequence of characters". '*' is the only wildcard; every
// other character, including '?' and '[', matches itself literally.
func (s *Store) ListUsers(pattern string) ([]string, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for name := range s.accounts {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(pattern)
	expanded := strings.ReplaceAll(escaped, `\*`, ".*")
	return regexp.Compile("^" + expanded + "$")
}
