package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Port        string         `yaml:"port"`
	ImagesDir   string         `yaml:"images_dir"`
	LogLevel    string         `yaml:"log_level"`
	Browser     BrowserConfig  `yaml:"browser"`
	CustomSites map[int]string `yaml:"custom_sites"`
}

// BrowserConfig controls the capture session.
type BrowserConfig struct {
	Remote       string `yaml:"remote"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("server: parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "8085"
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "images"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 2000
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 6000
	}
	if len(c.CustomSites) == 0 {
		c.CustomSites = map[int]string{
			1: "https://go.dev",
			2: "https://en.wikipedia.org/wiki/Go_(programming_language)",
			3: "https://pkg.go.dev/golang.org/x/net/html",
		}
	}
}
