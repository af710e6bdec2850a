package platform

import "path/filepath"

// getMacOSInfo returns platform-specific information for macOS
func getMacOSInfo(homeDir, username string) *Info {
	return &Info{
		OS:       MacOS,
		HomeDir:  homeDir,
		Username: username,
		SearchRoots: []string{
			"/Applications",
			filepath.Join(homeDir, "Applications"),
			filepath.Join(homeDir, "Library/Application Support"),
			filepath.Join(homeDir, "Library/Caches"),
			filepath.Join(homeDir, "Library/Preferences"),
			filepath.Join(homeDir, "Library/Logs"),
			filepath.Join(homeDir, "Library/LaunchAgents"),
			filepath.Join(homeDir, "Library/Saved Application State"),
			"/Library/Application Support",
			"/Library/LaunchAgents",
			"/Library/LaunchDaemons",
			"/Library/Preferences",
		},
		ProtectedPaths: []string{
			"/",
			"/System",
			"/Library/System",
			"/bin",
			"/sbin",
			"/usr",
			"/etc",
			"/var",
			"/dev",
			"/private/etc",
		},
	}
}
