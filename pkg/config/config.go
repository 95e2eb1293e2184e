// Package config loads the optional YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds tool-wide settings. Zero values are filled with defaults by
// Load.
type Config struct {
	// Export configures the serializer defaults.
	Export ExportConfig `yaml:"export"`

	// Server configures the HTTP boundary.
	Server ServerConfig `yaml:"server"`

	// Watch configures directory monitoring.
	Watch WatchConfig `yaml:"watch"`
}

// ExportConfig holds the serializer defaults.
type ExportConfig struct {
	// OutputDir is where export artifacts are written.
	OutputDir string `yaml:"output_dir"`

	// Stem is the output file-name stem.
	Stem string `yaml:"stem"`

	// IncludeDescription adds node descriptions to exports.
	IncludeDescription bool `yaml:"include_description"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
}

// WatchConfig holds directory-monitoring settings.
type WatchConfig struct {
	// Dirs are the directories to monitor for new files.
	Dirs []string `yaml:"dirs"`

	// Debounce is the settle time before a changed file is parsed.
	Debounce time.Duration `yaml:"debounce"`
}

// UnmarshalYAML accepts the debounce as a duration string ("500ms", "2s").
func (w *WatchConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Dirs     []string `yaml:"dirs"`
		Debounce string   `yaml:"debounce"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	w.Dirs = raw.Dirs
	if raw.Debounce != "" {
		d, err := time.ParseDuration(raw.Debounce)
		if err != nil {
			return fmt.Errorf("debounce: %w", err)
		}
		w.Debounce = d
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Export: ExportConfig{
			OutputDir: ".",
			Stem:      "produktionsliste",
		},
		Server: ServerConfig{
			Addr: ":8085",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads the YAML file at path, merged over the defaults. A missing file
// yields the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "."
	}
	if cfg.Export.Stem == "" {
		cfg.Export.Stem = "produktionsliste"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8085"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	return cfg, nil
}
