// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/smileynet/crmedit/internal/logging"
)

// Config holds all crmedit configuration.
type Config struct {
	API  API  `yaml:"api"`
	Form Form `yaml:"form"`
	Log  Log  `yaml:"log"`
}

// API holds CRM endpoint settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Form holds form behavior settings.
type Form struct {
	OnFailure   string `yaml:"on_failure"`   // "navigate" | "stay"
	PhoneRegion string `yaml:"phone_region"` // ISO 3166 region for phone checks; empty disables them
	LayoutDir   string `yaml:"layout_dir"`   // Directory overriding the embedded layouts
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		Form: Form{
			OnFailure: "navigate",
		},
		Log: Log{
			Level: "info",
			File:  ".crmedit/logs/crmedit.log",
		},
	}
}

// UserPath returns the user-level config file path.
func UserPath() string {
	return os.ExpandEnv("$HOME/.config/crmedit/config.yaml")
}

// ProjectPath is the project-level config file path.
const ProjectPath = ".crmedit/config.yaml"

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// LoadDotEnv loads KEY=value files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: loading %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	switch c.Form.OnFailure {
	case "", "navigate", "stay":
		// valid
	default:
		return fmt.Errorf("config: form.on_failure must be \"navigate\" or \"stay\", got %q", c.Form.OnFailure)
	}
	if r := c.Form.PhoneRegion; r != "" && !isRegionCode(r) {
		return fmt.Errorf("config: form.phone_region must be a two-letter region code, got %q", r)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if strings.TrimSpace(c.Log.File) == "" {
		return errors.New("config: log.file cannot be empty")
	}
	return nil
}

func isRegionCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: CRMEDIT_BASE_URL, CRMEDIT_TOKEN, CRMEDIT_TIMEOUT,
// CRMEDIT_ON_FAILURE, CRMEDIT_PHONE_REGION, CRMEDIT_LOG_LEVEL, CRMEDIT_LOG_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CRMEDIT_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CRMEDIT_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("CRMEDIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid CRMEDIT_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("CRMEDIT_ON_FAILURE"); v != "" {
		c.Form.OnFailure = v
	}
	if v := os.Getenv("CRMEDIT_PHONE_REGION"); v != "" {
		c.Form.PhoneRegion = strings.ToUpper(v)
	}
	if v := os.Getenv("CRMEDIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CRMEDIT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API  *rawAPI  `yaml:"api"`
	Form *rawForm `yaml:"form"`
	Log  *rawLog  `yaml:"log"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Token   *string        `yaml:"token"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawForm struct {
	OnFailure   *string `yaml:"on_failure"`
	PhoneRegion *string `yaml:"phone_region"`
	LayoutDir   *string `yaml:"layout_dir"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if a := layer.API; a != nil {
		if a.BaseURL != nil {
			c.API.BaseURL = *a.BaseURL
		}
		if a.Token != nil {
			c.API.Token = *a.Token
		}
		if a.Timeout != nil {
			c.API.Timeout = *a.Timeout
		}
	}
	if f := layer.Form; f != nil {
		if f.OnFailure != nil {
			c.Form.OnFailure = *f.OnFailure
		}
		if f.PhoneRegion != nil {
			c.Form.PhoneRegion = strings.ToUpper(*f.PhoneRegion)
		}
		if f.LayoutDir != nil {
			c.Form.LayoutDir = *f.LayoutDir
		}
	}
	if l := layer.Log; l != nil {
		if l.Level != nil {
			c.Log.Level = *l.Level
		}
		if l.File != nil {
			c.Log.File = *l.File
		}
	}
}
