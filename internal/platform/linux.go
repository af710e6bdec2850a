package platform

import "path/filepath"

// getLinuxInfo returns platform-specific information for Linux
func getLinuxInfo(homeDir, username string) *Info {
	return &Info{
		OS:       Linux,
		HomeDir:  homeDir,
		Username: username,
		SearchRoots: []string{
			filepath.Join(homeDir, ".local/share"),
			filepath.Join(homeDir, ".config"),
			filepath.Join(homeDir, ".cache"),
			"/opt",
			"/usr/local/share",
			"/usr/share/applications",
		},
		ProtectedPaths: []string{
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/root",
			"/sbin",
			"/sys",
			"/usr",
			"/var",
		},
	}
}
