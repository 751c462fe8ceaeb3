// Package filter decides which tables and views are visible to the agent.
//
// A name passes when it matches at least one include pattern (or the include
// list is empty) and matches no exclude pattern. Exclude always wins.
//
// Each pattern is either a regular expression or a glob:
//
//   - A pattern containing any of ^ $ + ? [ ] ( ) { } | \ or the sequence .*
//     is a regular expression and must match the whole name.
//   - Anything else is a glob where * matches any run of characters and every
//     other character, including '.', matches itself.
//
// Matching is case-insensitive in both modes.
//
// Usage:
//
//	f, err := filter.New([]string{"EMPLOYEE*"}, []string{"*_HISTORY"})
//	if err != nil { ... }
//	f.Match("EMPLOYEE_CURRENT") // true
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/sqlcontext/internal/errs"
)

// regexMeta lists the characters that switch a pattern into regex mode.
const regexMeta = `^$+?[](){}|\`

// Filter is a compiled include/exclude pair. The zero value includes everything.
// A Filter is immutable after New and safe for concurrent use.
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// New compiles include and exclude into a Filter.
// It fails with an ErrKindInvalidPattern error naming the first bad pattern.
func New(include, exclude []string) (*Filter, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{include: inc, exclude: exc}, nil
}

// Match reports whether name passes the filter.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}

	selected := len(f.include) == 0
	for _, re := range f.include {
		if re.MatchString(name) {
			selected = true
			break
		}
	}
	if !selected {
		return false
	}

	for _, re := range f.exclude {
		if re.MatchString(name) {
			return false
		}
	}
	return true
}

// Match compiles include and exclude and tests name in one call.
// Prefer New when the same lists are applied to many names.
func Match(name string, include, exclude []string) (bool, error) {
	f, err := New(include, exclude)
	if err != nil {
		return false, err
	}
	return f.Match(name), nil
}

// IsRegex reports whether pattern is interpreted as a regular expression.
func IsRegex(pattern string) bool {
	return strings.ContainsAny(pattern, regexMeta) || strings.Contains(pattern, ".*")
}

// Compile turns one pattern into an anchored, case-insensitive expression.
func Compile(pattern string) (*regexp.Regexp, error) {
	body := pattern
	if !IsRegex(pattern) {
		body = globToRegex(pattern)
	}

	re, err := regexp.Compile(`(?is)^(?:` + body + `)$`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidPattern,
			fmt.Sprintf("invalid table filter pattern %q", pattern), err)
	}
	return re, nil
}

// --- helpers ---

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// globToRegex quotes every literal run and turns each * into .*.
func globToRegex(glob string) string {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, ".*")
}
