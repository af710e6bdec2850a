package platform

import (
	"errors"
	"os/user"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// ErrUnsupportedPlatform is returned when running on a platform without
// default search locations.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Info contains platform-specific information and paths
type Info struct {
	OS       Platform
	HomeDir  string
	Username string

	// SearchRoots are the default locations scanned for application remnants
	// when the configuration does not override them.
	SearchRoots []string

	// ProtectedPaths are never removed, whatever the matcher says.
	ProtectedPaths []string
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// GetInfo returns platform-specific information
func GetInfo() (*Info, error) {
	platform := Detect()

	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	homeDir := currentUser.HomeDir
	username := currentUser.Username

	switch platform {
	case MacOS:
		return getMacOSInfo(homeDir, username), nil
	case Linux:
		return getLinuxInfo(homeDir, username), nil
	default:
		return nil, ErrUnsupportedPlatform
	}
}
