// Package config handles the optional YAML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/woozymasta/shp2geojson/internal/shapefile"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
// Zero values mean "not set" and leave the command line value in effect.
type Config struct {
	// EmbedCRS toggles the GeoJSON crs member when an EPSG code is resolved.
	EmbedCRS      *bool  `yaml:"embed_crs,omitempty" json:"embed_crs,omitempty"`
	Encoding      string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	ProjDB        string `yaml:"proj_db,omitempty" json:"proj_db,omitempty"`
	Server        Server `yaml:"server,omitempty" json:"server,omitempty"`
	MinConfidence int    `yaml:"min_confidence,omitempty" json:"min_confidence,omitempty"`
}

// Server holds HTTP service settings.
type Server struct {
	Addr      string `yaml:"addr,omitempty" json:"addr,omitempty"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	MaxUpload int64  `yaml:"max_upload_mb,omitempty" json:"max_upload_mb,omitempty"` // megabytes
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOptional is Load for an optional file: an empty path or a missing
// file yields an empty configuration.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return cfg, err
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be within 0..100, got %d", c.MinConfidence)
	}
	if c.Encoding != "" {
		if _, _, err := shapefile.LookupEncoding(c.Encoding); err != nil {
			return err
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUpload < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	return nil
}

// Embed resolves the embed setting: a disabling flag wins, then the file,
// then the default of embedding.
func (c *Config) Embed(noEmbedFlag bool) bool {
	if noEmbedFlag {
		return false
	}
	if c != nil && c.EmbedCRS != nil {
		return *c.EmbedCRS
	}
	return true
}

// Apply fills zero valued options from the configuration file.
func (c *Config) Apply(minConfidence *int, encoding, projDB *string) {
	if c == nil {
		return
	}
	if *minConfidence == 0 {
		*minConfidence = c.MinConfidence
	}
	if *encoding == "" {
		*encoding = c.Encoding
	}
	if *projDB == "" {
		*projDB = c.ProjDB
	}
}
