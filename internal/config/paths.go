package config

import (
	"os"
	"path/filepath"
	"time"
)

// Defaults for paths below the data dir and for compaction.
const (
	DefaultDBName           = "ideaflow.db"
	DefaultProjectsDirName  = "projects"
	DefaultTemplatesDirName = "templates"
	DefaultConfigFileName   = configName + "." + configType

	DefaultCompactionTimeout     = 60 * time.Second
	DefaultCompactionMaxMessages = 200
)

// GetGlobalConfigDir returns the global configuration directory: the
// XDG config dir when XDG_CONFIG_HOME is set, ~/.ideaflow otherwise.
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ideaflow"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ideaflow"), nil
}

// GlobalConfigFile returns the path of the default config file.
func GlobalConfigFile() (string, error) {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFileName), nil
}

// ProjectRoot returns the project root of an idea below the projects dir.
func (c *Config) ProjectRoot(ideaID string) string {
	return filepath.Join(c.Projects.Dir, ideaID)
}

// CrashLogBase returns the directory crash logs are written under.
func (c *Config) CrashLogBase() string {
	return c.Data.Dir
}
