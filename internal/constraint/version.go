package constraint

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// VersionError reports a declared version that is malformed.
type VersionError struct {
	Index   int
	Version string
	Err     error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("versions[%d]: invalid semantic version %q: %v", e.Index, e.Version, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

// OrderError reports declared versions that are not strictly increasing.
type OrderError struct {
	Index int
	Prev  string
	Next  string
}

func (e *OrderError) Error() string {
	if e.Prev == e.Next {
		return fmt.Sprintf("versions[%d]: duplicate version %q", e.Index, e.Next)
	}
	return fmt.Sprintf("versions[%d]: %q must be greater than preceding %q", e.Index, e.Next, e.Prev)
}

// ParseVersion parses a full MAJOR.MINOR.PATCH semantic version.
func ParseVersion(s string) (*semver.Version, error) {
	return semver.StrictNewVersion(s)
}

// ParseVersions parses declared versions, which must be strictly increasing.
// Every malformed entry is reported before ordering is checked.
func ParseVersions(raw []string) ([]*semver.Version, []error) {
	out := make([]*semver.Version, len(raw))
	var errs []error
	for i, s := range raw {
		v, err := ParseVersion(s)
		if err != nil {
			errs = append(errs, &VersionError{Index: i, Version: s, Err: err})
			continue
		}
		out[i] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for i := 1; i < len(out); i++ {
		if out[i].Compare(out[i-1]) <= 0 {
			errs = append(errs, &OrderError{Index: i, Prev: raw[i-1], Next: raw[i]})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// Latest returns the maximum of a validated ordering, or nil if empty.
func Latest(versions []*semver.Version) *semver.Version {
	if len(versions) == 0 {
		return nil
	}
	return versions[len(versions)-1]
}
