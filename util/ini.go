package util

import (
	"path/filepath"

	"gopkg.in/ini.v1"
)

// config files live in the config directory below the working directory
const configDir = "config"

// Ini loads the named config file and returns the keys of its unnamed
// section.
func Ini(name string) (map[string]string, error) {
	cfg, err := ini.Load(filepath.Join(configDir, name))
	if err != nil {
		return nil, err
	}
	return cfg.Section("").KeysHash(), nil
}
