package descriptor

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a plugin's declared semantic version. It is kept as a plain
// major/minor/patch triple rather than a parsed semver.Version so that
// descriptors stay comparable and serializable without depending on the
// semver package's internal representation; Satisfies builds a semver
// constraint on demand. The graph builder does not call it, so binding a
// socket to candidate plugs does not check versions.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Satisfies reports whether v satisfies the given semver constraint string
// (e.g. "^1.2.0", ">=1.0.0, <2.0.0"). A malformed constraint is treated as
// unsatisfied rather than panicking, since constraint strings originate
// from plugin descriptors loaded off disk.
func (v Version) Satisfies(constraint string) bool {
	if constraint == "" {
		return true
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	sv, err := semver.NewVersion(v.String())
	if err != nil {
		return false
	}
	return c.Check(sv)
}

// ParseVersion parses a "major.minor.patch" string into a Version.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("descriptor: parse version %q: %w", s, err)
	}
	return Version{Major: sv.Major(), Minor: sv.Minor(), Patch: sv.Patch()}, nil
}
