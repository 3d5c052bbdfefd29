package signal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Matcher decides whether a post talks about an instrument using whole-word, case-insensitive alias matching.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	patterns map[string][]*regexp.Regexp
}

// NewMatcher compiles one pattern per alias. Blank aliases are ignored.
func NewMatcher(aliases map[string][]string) (*Matcher, error) {
	m := &Matcher{patterns: make(map[string][]*regexp.Regexp, len(aliases))}
	for id, names := range aliases {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile alias %q for %s: %w", name, id, err)
			}
			m.patterns[id] = append(m.patterns[id], re)
		}
	}
	return m, nil
}

// Matches reports whether text references instrumentID. Instruments without aliases never match.
func (m *Matcher) Matches(text, instrumentID string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns[instrumentID] {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Relevant returns the IDs among instrumentIDs that text references, in sorted order.
func (m *Matcher) Relevant(text string, instrumentIDs []string) []string {
	var out []string
	for _, id := range instrumentIDs {
		if m.Matches(text, id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
