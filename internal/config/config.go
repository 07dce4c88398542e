package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for a binsync process, whether it
// is running as the sync client, the pack publisher, or both.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Manifest ManifestConfig `yaml:"manifest"`
	Pack     PackConfig     `yaml:"pack"`
	Remote   RemoteConfig   `yaml:"remote"`
}

// ServerConfig configures the pack-publishing HTTP server (§6).
type ServerConfig struct {
	Port        int    `yaml:"port" default:"8080"`
	MetricsPort int    `yaml:"metrics_port" default:"9090"`
	LogLevel    string `yaml:"log_level" default:"info"`
}

// ChunkerConfig holds the FastCDC boundary parameters. These are a format
// contract (§4.1): two parties that must produce identical manifests need
// identical values, so only tests should override the defaults.
type ChunkerConfig struct {
	MinSize uint `yaml:"min_size" default:"32768"`
	AvgSize uint `yaml:"avg_size" default:"65536"`
	MaxSize uint `yaml:"max_size" default:"131072"`
}

// ManifestConfig controls manifest construction.
type ManifestConfig struct {
	Workers int `yaml:"workers" default:"4"`
}

// PackConfig controls pack grouping for remote transport (§4.4).
type PackConfig struct {
	SizeLimit uint64 `yaml:"size_limit" default:"104857600"` // 100 MiB
	Compress  bool   `yaml:"compress" default:"false"`
}

// RemoteConfig controls the Remote chunk provider (§4.5.3).
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	CacheLimit     uint64        `yaml:"cache_limit" default:"104857600"` // 100 MiB
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
	RatePerSecond  float64       `yaml:"rate_per_second" default:"8"`
}

// DefaultConfig returns a Config with every default value applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			MetricsPort: 9090,
			LogLevel:    "info",
		},
		Chunker: ChunkerConfig{
			MinSize: 32768,
			AvgSize: 65536,
			MaxSize: 131072,
		},
		Manifest: ManifestConfig{
			Workers: 4,
		},
		Pack: PackConfig{
			SizeLimit: 104857600,
		},
		Remote: RemoteConfig{
			CacheLimit:     104857600,
			RequestTimeout: 30 * time.Second,
			RatePerSecond:  8,
		},
	}
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Chunker.MinSize == 0 || c.Chunker.AvgSize == 0 || c.Chunker.MaxSize == 0 {
		return fmt.Errorf("config: chunker sizes must be positive")
	}
	if c.Chunker.MinSize > c.Chunker.AvgSize || c.Chunker.AvgSize > c.Chunker.MaxSize {
		return fmt.Errorf("config: chunker sizes must satisfy min <= avg <= max")
	}
	if c.Manifest.Workers <= 0 {
		return fmt.Errorf("config: manifest workers must be positive")
	}
	if c.Pack.SizeLimit == 0 {
		return fmt.Errorf("config: pack size limit must be positive")
	}
	return nil
}
