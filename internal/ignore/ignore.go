// Package ignore matches paths against gitignore-style glob patterns.
//
// Supported syntax: "*" and "?" within a path segment, "**" across
// segments, character classes, a leading "!" to re-include, a leading "/"
// to anchor at the watch root, and a trailing "/" for directories only.
// Patterns without a slash match any path segment.
package ignore

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	oerrors "github.com/ickyicky/folder-observer/internal/errors"
)

// Matcher holds compiled patterns. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	source   string
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
}

// New compiles patterns into a Matcher.
func New(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add compiles one pattern. Blank lines and "#" comments are skipped.
func (m *Matcher) Add(pattern string) error {
	p := strings.TrimSpace(pattern)
	if p == "" || strings.HasPrefix(p, "#") {
		return nil
	}

	r := rule{source: p}
	switch {
	case strings.HasPrefix(p, `\!`), strings.HasPrefix(p, `\#`):
		p = p[1:]
	case strings.HasPrefix(p, "!"):
		r.negate = true
		p = p[1:]
	}

	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimSuffix(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		r.anchored = true
		p = strings.TrimPrefix(p, "/")
	}
	// "doc/tmp" is relative to the root, "**/tmp" is not.
	if strings.Contains(p, "/") && !strings.HasPrefix(p, "**/") {
		r.anchored = true
	}

	re, err := regexp.Compile("^" + globToRegex(p) + "$")
	if err != nil {
		return oerrors.New(oerrors.ErrCodeInvalidPattern,
			fmt.Sprintf("invalid ignore pattern %q", pattern), err)
	}
	r.re = re

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
	return nil
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether relPath should be ignored. relPath is relative to
// the watch root. The last matching rule wins.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(path string, isDir bool) bool {
	parts := strings.Split(path, "/")

	if r.anchored {
		if r.re.MatchString(path) {
			return !r.dirOnly || isDir
		}
		// Anything below a matched directory is matched too.
		for i := 1; i < len(parts); i++ {
			if r.re.MatchString(strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	for i, part := range parts {
		if !r.re.MatchString(part) {
			continue
		}
		last := i == len(parts)-1
		if last && r.dirOnly {
			return isDir
		}
		return true
	}
	return r.re.MatchString(path) && (!r.dirOnly || isDir)
}

// globToRegex translates a glob into an unanchored regular expression.
func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
