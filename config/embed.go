package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed *.yaml
var ConfigFS embed.FS

// Dir is where on-disk overrides of the embedded files live.
var Dir = "config"

// Load reads a config file, preferring a copy on disk over the embedded one.
func Load(name string) ([]byte, error) {
	clean := cleanConfigPath(name)
	if data, err := os.ReadFile(DiskPath(clean)); err == nil {
		return data, nil
	}
	return ConfigFS.ReadFile(clean)
}

// LoadScript reads a device script, preferring a copy on disk.
func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if data, err := os.ReadFile(DiskPath(clean)); err == nil {
		return data, nil
	}
	return ScriptsFS.ReadFile(clean)
}

func ModTime(name string) (time.Time, bool) {
	info, err := os.Stat(DiskPath(cleanConfigPath(name)))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// DiskPath maps an embedded name to its override path.
func DiskPath(clean string) string {
	return filepath.Join(Dir, filepath.FromSlash(clean))
}

func cleanConfigPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, Dir+"/"); ok {
		return after
	}
	return s
}

func cleanScriptPath(path string) string {
	if path == "" {
		return ""
	}

	s := filepath.ToSlash(path)

	if after, ok := strings.CutPrefix(s, Dir+"/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}

	if !strings.HasSuffix(s, ".tengo") {
		s += ".tengo"
	}

	return fmt.Sprintf("scripts/%s", s)
}
