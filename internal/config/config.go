package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type StoreConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type MatcherConfig struct {
	Command          string   `toml:"command"`
	Args             []string `toml:"args"`
	LengthTol        float64  `toml:"length_tol"`
	SiteTol          float64  `toml:"site_tol"`
	AngleTol         float64  `toml:"angle_tol"`
	Scale            bool     `toml:"scale"`
	PrimitiveCell    bool     `toml:"primitive_cell"`
	AttemptSupercell bool     `toml:"attempt_supercell"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

type SymmetryConfig struct {
	Enabled bool     `toml:"enabled"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Symprec float64  `toml:"symprec"`
}

type BucketingConfig struct {
	MaxBucketSize int `toml:"max_bucket_size"`
}

type ClusterConfig struct {
	Strategy string `toml:"strategy"`
}

type ConcurrencyConfig struct {
	Buckets int `toml:"buckets"`
}

type RefineConfig struct {
	Priority []string `toml:"priority"`
	FlagDir  string   `toml:"flag_dir"`
}

type LogConfig struct {
	Env   string `toml:"env"`
	Level string `toml:"level"`
}

type Config struct {
	Store       StoreConfig       `toml:"store"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Symmetry    SymmetryConfig    `toml:"symmetry"`
	Bucketing   BucketingConfig   `toml:"bucketing"`
	Cluster     ClusterConfig     `toml:"cluster"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Refine      RefineConfig      `toml:"refine"`
	Log         LogConfig         `toml:"log"`
}

// Default returns the configuration used when a section or key is absent
// from the file. Matcher tolerances mirror the comparator defaults;
// primitive_cell is off since imported structures arrive primitivized.
func Default() Config {
	return Config{
		Store: StoreConfig{URI: "bolt://localhost:7687"},
		Matcher: MatcherConfig{
			LengthTol:        0.2,
			SiteTol:          0.3,
			AngleTol:         5.0,
			Scale:            true,
			PrimitiveCell:    false,
			AttemptSupercell: false,
			TimeoutSeconds:   60,
		},
		Symmetry:    SymmetryConfig{Enabled: true, Symprec: 0.005},
		Bucketing:   BucketingConfig{MaxBucketSize: 200},
		Cluster:     ClusterConfig{Strategy: "components"},
		Concurrency: ConcurrencyConfig{Buckets: 4},
		Refine:      RefineConfig{Priority: []string{"cod", "icsd", "mpds"}, FlagDir: "flags"},
		Log:         LogConfig{Env: "dev"},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults plus
// environment overrides when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return &cfg, nil
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Store.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Store.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("SPINEL_MATCHER_COMMAND"); v != "" {
		c.Matcher.Command = v
	}
	if v := os.Getenv("SPINEL_SYMMETRY_COMMAND"); v != "" {
		c.Symmetry.Command = v
	}
	if v := os.Getenv("SPINEL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
