package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// WriteDefault writes the commented default configuration to path,
// atomically, refusing to clobber an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	// The template is hand-maintained; make sure it is still valid YAML
	// before handing it to users.
	var probe map[string]interface{}
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML), &probe); err != nil {
		return fmt.Errorf("default config template is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
