// Package config loads the luadox project configuration from
// luadox.yml with environment variable overrides.
package config

import (
	"fmt"
)

// Config represents the complete luadox configuration.
type Config struct {
	Project ProjectConfig `yaml:"project" mapstructure:"project"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Manual  []ManualPage  `yaml:"manual" mapstructure:"manual"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// ProjectConfig names the documented project.
type ProjectConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// PathsConfig defines where Lua sources are found.
type PathsConfig struct {
	Sources []string `yaml:"sources" mapstructure:"sources"` // files or directories to scan
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
	Follow  bool     `yaml:"follow" mapstructure:"follow"`   // chase require() statements
}

// ManualPage is one hand-written markdown page. Pages render in the
// order they are listed.
type ManualPage struct {
	ID   string `yaml:"id" mapstructure:"id"`
	File string `yaml:"file" mapstructure:"file"`
}

// OutputConfig defines where and how documentation is written.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"` // "markdown" and/or "json"
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Name: "Lua Project",
		},
		Paths: PathsConfig{
			Sources: []string{"."},
			Ignore: []string{
				".git/**",
				"node_modules/**",
				"**/*_spec.lua",
				"**/*_test.lua",
			},
			Follow: true,
		},
		Output: OutputConfig{
			Dir:     "build/docs",
			Formats: []string{"markdown"},
		},
	}
}

// Validate checks the configuration for errors that would otherwise
// surface mid-build.
func Validate(cfg *Config) error {
	if len(cfg.Paths.Sources) == 0 {
		return fmt.Errorf("paths.sources must list at least one file or directory")
	}
	for _, format := range cfg.Output.Formats {
		switch format {
		case "markdown", "json":
		default:
			return fmt.Errorf("unknown output format %q (expected markdown or json)", format)
		}
	}
	seen := make(map[string]bool)
	for _, page := range cfg.Manual {
		if page.ID == "" || page.File == "" {
			return fmt.Errorf("manual pages need both an id and a file")
		}
		if seen[page.ID] {
			return fmt.Errorf("duplicate manual page id %q", page.ID)
		}
		seen[page.ID] = true
	}
	return nil
}

// WantsFormat reports whether the given output format is enabled.
func (c *Config) WantsFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}
