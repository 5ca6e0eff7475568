package alias

import (
	"fmt"
	"strings"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/spf13/pflag"
)

var _ pflag.Value = (*Location)(nil)

// Location selects which certificate store an alias is looked up in.
type Location string

const (
	CurrentUser  Location = "CurrentUser"
	LocalMachine Location = "LocalMachine"
)

// Locations lists every valid location.
var Locations = []Location{CurrentUser, LocalMachine}

// ParseLocation accepts the canonical names case-insensitively, plus the
// short forms "user" and "machine".
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "currentuser", "user":
		return CurrentUser, nil
	case "localmachine", "machine":
		return LocalMachine, nil
	}
	return "", fmt.Errorf("%w: %q (expected CurrentUser or LocalMachine)", cerrors.ErrInvalidLocation, s)
}

func (l Location) String() string {
	return string(l)
}

// Set implements pflag.Value.
func (l *Location) Set(s string) error {
	loc, err := ParseLocation(s)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

// Type implements pflag.Value.
func (l *Location) Type() string {
	return "location"
}
