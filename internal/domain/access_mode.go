package domain

import (
	"errors"
	"fmt"
)

// AccessMode selects between a per-shop token and a per-user token
type AccessMode int

const (
	AccessModeOffline AccessMode = iota
	AccessModeOnline
)

// ErrUnrecognizedAccessMode is returned for any mode other than online or offline
var ErrUnrecognizedAccessMode = errors.New("unrecognized access mode")

// ParseAccessMode converts the configured string form into an AccessMode
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "online":
		return AccessModeOnline, nil
	case "offline":
		return AccessModeOffline, nil
	default:
		return 0, fmt.Errorf("%w '%s', accepted values are 'online' and 'offline'", ErrUnrecognizedAccessMode, s)
	}
}

// Validate fails for values outside the two known modes
func (m AccessMode) Validate() error {
	switch m {
	case AccessModeOffline, AccessModeOnline:
		return nil
	default:
		return fmt.Errorf("%w %d", ErrUnrecognizedAccessMode, int(m))
	}
}

func (m AccessMode) String() string {
	switch m {
	case AccessModeOnline:
		return "online"
	case AccessModeOffline:
		return "offline"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(m))
	}
}

// IsOnline reports whether m is the online mode
func (m AccessMode) IsOnline() bool {
	return m == AccessModeOnline
}
