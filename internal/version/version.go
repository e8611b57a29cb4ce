// Package version parses the protocol version a battery reports and decides
// register-table compatibility.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for versions no register table can serve.
var ErrUnsupported = errors.New("version: unsupported protocol version")

// Version is a parsed major.minor.patch protocol version.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Key identifies a register table. Patch never changes the register layout.
type Key struct {
	Major uint16
	Minor uint16
}

// String returns "major.minor".
func (k Key) String() string {
	return fmt.Sprintf("%d.%d", k.Major, k.Minor)
}

// Key returns the compatibility key of v.
func (v Version) Key() Key {
	return Key{Major: v.Major, Minor: v.Minor}
}

// Compatible reports whether both versions share major and minor.
func (v Version) Compatible(other Version) bool {
	return v.Key() == other.Key()
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool {
	return v == Version{}
}

// String returns the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse parses a strict "major.minor.patch" string.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	var nums [3]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || p == "" {
			return Version{}, fmt.Errorf("invalid version %q: bad component %q", s, p)
		}
		nums[i] = uint16(n)
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Coerce parses the loosely formatted strings devices put on the wire:
// surrounding NULs and spaces, an optional "v" prefix, one to three numeric
// components and any pre-release or build suffix are accepted. Missing
// components default to zero.
func Coerce(s string) (Version, error) {
	t := strings.Trim(s, "\x00 \t\r\n")
	t = strings.TrimPrefix(strings.TrimPrefix(t, "v"), "V")
	if i := strings.IndexAny(t, "-+"); i >= 0 {
		t = t[:i]
	}
	if t == "" {
		return Version{}, fmt.Errorf("invalid version %q: empty", s)
	}

	parts := strings.Split(t, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q: too many components", s)
	}
	var nums [3]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || p == "" {
			return Version{}, fmt.Errorf("invalid version %q: bad component %q", s, p)
		}
		nums[i] = uint16(n)
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParse is Parse for static tables; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
