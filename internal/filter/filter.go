// Package filter decides which file names the observer must leave alone.
//
// Patterns are regular expressions matched against a file's base name with
// "match from start" semantics: a pattern matches when it matches a prefix of
// the name, unless it anchors itself with `$`.
package filter

import (
	"fmt"
	"regexp"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// DefaultPatterns cover partial and in-progress download artifacts.
var DefaultPatterns = []string{
	`.*\.crdownload$`,
	`.*\.temp$`,
	`.*\.part.*`,
}

// PathFilter is a stateless predicate over a fixed set of exclusion rules.
// It is safe for concurrent use.
type PathFilter struct {
	patterns []string
	rules    []*regexp.Regexp
}

// New compiles patterns into a PathFilter.
// An invalid pattern is a configuration error.
func New(patterns []string) (*PathFilter, error) {
	f := &PathFilter{
		patterns: append([]string(nil), patterns...),
		rules:    make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)`)
		if err != nil {
			return nil, oerrors.New(oerrors.ErrCodeInvalidPattern,
				fmt.Sprintf("invalid exclusion pattern %q", p), err)
		}
		f.rules = append(f.rules, re)
	}

	return f, nil
}

// Default returns a PathFilter with DefaultPatterns.
func Default() *PathFilter {
	f, err := New(DefaultPatterns)
	if err != nil {
		panic(err)
	}
	return f
}

// IsExcluded reports whether any rule matches baseName.
func (f *PathFilter) IsExcluded(baseName string) bool {
	_, ok := f.Match(baseName)
	return ok
}

// Match returns the first pattern that matches baseName.
func (f *PathFilter) Match(baseName string) (string, bool) {
	if f == nil {
		return "", false
	}
	for i, re := range f.rules {
		if re.MatchString(baseName) {
			return f.patterns[i], true
		}
	}
	return "", false
}

// Patterns returns a copy of the configured patterns.
func (f *PathFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}

// Validate compiles patterns without keeping them.
func Validate(patterns []string) error {
	_, err := New(patterns)
	return err
}
