package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Version identifies a schema release. Patch is informational;
// schema resources are resolved on major.minor only.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a version string like "24.1" or "9.2.0".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || parts[0] == "" {
		return Version{}, fmt.Errorf("invalid version string %q", s)
	}

	var v Version
	var err error
	v.Major, err = strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid version string %q: %w", s, err)
	}
	if len(parts) > 1 {
		v.Minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version string %q: %w", s, err)
		}
	}
	if len(parts) > 2 {
		v.Patch, err = strconv.Atoi(parts[2])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version string %q: %w", s, err)
		}
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Label is the short form written into model files ("24.1").
func (v Version) Label() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
