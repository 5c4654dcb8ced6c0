package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// most specific first.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(home, "AppData", "Roaming", "framegrade"))
		} else {
			paths = append(paths, filepath.Join(home, ".config", "framegrade"))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/framegrade")
	}
	return paths
}
