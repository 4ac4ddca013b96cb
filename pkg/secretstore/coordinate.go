package secretstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxCoordinateLength is the longest full coordinate any backend accepts.
// Google Secret Manager caps secret ids at 255 characters; the limit is
// applied to every store so a coordinate minted for one backend is valid in all.
const MaxCoordinateLength = 255

// VersionSeparator joins a coordinate base and its version.
const VersionSeparator = "_v"

// Coordinate base prefixes.
const (
	WorkspacePrefix          = "workspace_"
	ServiceAccountJSONPrefix = "service_account_json_"
	ServiceAccountHMACPrefix = "service_account_hmac_"
)

var baseCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Coordinate identifies one immutable secret value.
//
// Base names the logical secret slot (for example a connector's password
// field) and Version counts the values that slot has held. A changed value
// always produces a new Coordinate with the same Base and Version+1; the
// payload stored under an existing coordinate is never replaced.
//
// Coordinates are comparable and can be used as map keys. Two coordinates
// are equal exactly when their full strings are equal.
type Coordinate struct {
	Base    string
	Version int
}

// NewCoordinate validates base and version and returns the coordinate.
//
// The base must match ^[A-Za-z0-9_-]+$ and must not contain the "_v"
// separator, the version must be at least 1, and the full coordinate must
// fit in MaxCoordinateLength characters.
func NewCoordinate(base string, version int) (Coordinate, error) {
	c := Coordinate{Base: base, Version: version}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// NewBase builds a coordinate base of the form
// <prefix><workspaceID>_secret_<secretID>.
func NewBase(prefix string, workspaceID, secretID uuid.UUID) string {
	return prefix + workspaceID.String() + "_secret_" + secretID.String()
}

// Full returns the wire form of the coordinate: base + "_v" + version.
func (c Coordinate) Full() string {
	return c.Base + VersionSeparator + strconv.Itoa(c.Version)
}

// String implements fmt.Stringer.
func (c Coordinate) String() string {
	return c.Full()
}

// Next returns the coordinate for the next value of the same slot.
func (c Coordinate) Next() Coordinate {
	return Coordinate{Base: c.Base, Version: c.Version + 1}
}

// IsZero reports whether c is the zero Coordinate.
func (c Coordinate) IsZero() bool {
	return c.Base == "" && c.Version == 0
}

// Validate checks the coordinate against the portable key constraints.
func (c Coordinate) Validate() error {
	switch {
	case c.Base == "":
		return &CoordinateError{Coordinate: c.Full(), Reason: "base is empty"}
	case !baseCharset.MatchString(c.Base):
		return &CoordinateError{Coordinate: c.Full(), Reason: "base must match ^[A-Za-z0-9_-]+$"}
	case strings.Contains(c.Base, VersionSeparator):
		return &CoordinateError{Coordinate: c.Full(), Reason: "base must not contain " + strconv.Quote(VersionSeparator)}
	case c.Version < 1:
		return &CoordinateError{Coordinate: c.Full(), Reason: "version must be >= 1"}
	case len(c.Full()) > MaxCoordinateLength:
		return &CoordinateError{
			Coordinate: c.Full(),
			Reason:     fmt.Sprintf("full coordinate exceeds %d characters", MaxCoordinateLength),
		}
	}
	return nil
}

// ParseCoordinate parses a full coordinate back into base and version.
//
// The string must split on "_v" into exactly two segments and the version
// segment must be a positive integer written without sign or leading zeros,
// so Full returns the parsed string unchanged. Anything else is a *CoordinateError,
// which usually means the stored configuration is corrupt.
func ParseCoordinate(full string) (Coordinate, error) {
	parts := strings.Split(full, VersionSeparator)
	if len(parts) != 2 {
		return Coordinate{}, &CoordinateError{
			Coordinate: full,
			Reason:     fmt.Sprintf("expected exactly one %q separator, found %d", VersionSeparator, len(parts)-1),
		}
	}

	version, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coordinate{}, &CoordinateError{Coordinate: full, Reason: "version is not an integer"}
	}
	// Full must reproduce the input, so signs and leading zeros are rejected.
	if strconv.Itoa(version) != parts[1] {
		return Coordinate{}, &CoordinateError{Coordinate: full, Reason: "version is not in canonical form"}
	}

	return NewCoordinate(parts[0], version)
}

// MustParseCoordinate is like ParseCoordinate but panics on error.
// Intended for tests and package-level fixtures.
func MustParseCoordinate(full string) Coordinate {
	c, err := ParseCoordinate(full)
	if err != nil {
		panic(err)
	}
	return c
}
