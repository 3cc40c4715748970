// Package constraint evaluates version-validity constraints for operations
// and parameters.
//
// A constraint is a list of range expressions. An empty list matches every
// version; otherwise a version is active iff at least one range matches it.
// Ranges use Masterminds/semver syntax: ">=1.0.0", "^1.2", "~2.0", "1.x",
// ">=1.0.0, <3.0.0", "1.0.0 || 3.0.0". A bare version matches exactly.
//
// Everything here is a pure function over immutable values.
package constraint

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SyntaxError reports a range expression that could not be parsed.
type SyntaxError struct {
	Expr string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid version range %q: %v", e.Expr, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Set is a parsed constraint: a union of ranges.
type Set struct {
	exprs  []string
	ranges []*semver.Constraints
}

// ParseSet parses every expression. The first invalid one is reported as a
// *SyntaxError.
func ParseSet(exprs []string) (Set, error) {
	s := Set{exprs: exprs, ranges: make([]*semver.Constraints, 0, len(exprs))}
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			return Set{}, &SyntaxError{Expr: expr, Err: fmt.Errorf("empty expression")}
		}
		c, err := semver.NewConstraint(expr)
		if err != nil {
			return Set{}, &SyntaxError{Expr: expr, Err: err}
		}
		s.ranges = append(s.ranges, c)
	}
	return s, nil
}

// MustParseSet is like ParseSet but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseSet(exprs ...string) Set {
	s, err := ParseSet(exprs)
	if err != nil {
		panic(err)
	}
	return s
}

// Unconstrained reports whether the set matches every version.
func (s Set) Unconstrained() bool {
	return len(s.ranges) == 0
}

// Active reports whether v satisfies the set.
func (s Set) Active(v *semver.Version) bool {
	if s.Unconstrained() {
		return true
	}
	for _, r := range s.ranges {
		if r.Check(v) {
			return true
		}
	}
	return false
}

// Satisfiable reports whether any of the given versions satisfies the set.
func (s Set) Satisfiable(versions []*semver.Version) bool {
	for _, v := range versions {
		if s.Active(v) {
			return true
		}
	}
	return false
}

// String returns the expressions joined with " | ".
func (s Set) String() string {
	if s.Unconstrained() {
		return "*"
	}
	return strings.Join(s.exprs, " | ")
}

// IsActive parses exprs and version and evaluates them.
func IsActive(exprs []string, version string) (bool, error) {
	s, err := ParseSet(exprs)
	if err != nil {
		return false, err
	}
	v, err := ParseVersion(version)
	if err != nil {
		return false, err
	}
	return s.Active(v), nil
}
