package statemachine

import (
	"fmt"
	"regexp"
	"slices"
)

// Matcher decides whether a rule accepts a transition token.
type Matcher interface {
	Match(token string) bool
}

// MatchFunc adapts a predicate to Matcher.
type MatchFunc func(token string) bool

func (f MatchFunc) Match(token string) bool {
	return f(token)
}

type exactMatcher string

func (m exactMatcher) Match(token string) bool {
	return string(m) == token
}

type patternMatcher struct {
	re *regexp.Regexp
}

func (m patternMatcher) Match(token string) bool {
	return m.re.MatchString(token)
}

type setMatcher []string

func (m setMatcher) Match(token string) bool {
	return slices.Contains(m, token)
}

type alwaysMatcher struct{}

func (alwaysMatcher) Match(string) bool {
	return true
}

// Exact matches a token equal to s.
func Exact(s string) Matcher {
	return exactMatcher(s)
}

// Pattern matches tokens containing a match of re.
func Pattern(re *regexp.Regexp) Matcher {
	return patternMatcher{re: re}
}

// OneOf matches tokens found in values.
func OneOf(values ...string) Matcher {
	return setMatcher(slices.Clone(values))
}

// Always matches every token.
func Always() Matcher {
	return alwaysMatcher{}
}

// newMatcher normalizes a When condition.
func newMatcher(cond any) (Matcher, error) {
	switch c := cond.(type) {
	case Matcher:
		return c, nil
	case string:
		return Exact(c), nil
	case *regexp.Regexp:
		if c == nil {
			break
		}
		return Pattern(c), nil
	case func(string) bool:
		if c == nil {
			break
		}
		return MatchFunc(c), nil
	case []string:
		return OneOf(c...), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidCondition, cond)
}
