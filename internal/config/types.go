// Package config loads clafer CLI settings from defaults, a clafer.yaml
// project file, CLAFER_* environment variables and command-line flags.
package config

import (
	"fmt"

	"github.com/roach88/clafer/internal/script"
)

// Defaults.
const (
	DefaultFormat      = "text"
	DefaultCatalogPath = ".clafer/catalog.db"
	DefaultLoadMode    = "collect"
	DefaultGoldenDir   = "" // beside the scenarios directory
)

// Config holds all CLI configuration options.
type Config struct {
	Format      string `koanf:"format"`
	Verbose     bool   `koanf:"verbose"`
	CatalogPath string `koanf:"catalog_path"`
	LoadMode    string `koanf:"load_mode"`
	GoldenDir   string `koanf:"golden_dir"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be text or json", c.Format)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	return nil
}

// Mode returns the script load mode named by LoadMode.
func (c *Config) Mode() (script.LoadMode, error) {
	switch c.LoadMode {
	case "collect", "":
		return script.LoadModeCollectAll, nil
	case "failfast":
		return script.LoadModeFailFast, nil
	default:
		return 0, fmt.Errorf("invalid load_mode %q: must be collect or failfast", c.LoadMode)
	}
}
