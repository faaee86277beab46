package laminar

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by FindConfig when no project config file
// exists between dir and the filesystem root.
var ErrConfigNotFound = errors.New("laminar: no .laminar.yaml found")

// DefaultConfigNames are the filenames searched for by FindConfig, in order.
var DefaultConfigNames = []string{".laminar.yaml", ".laminar.yml", "laminar.yaml", "laminar.yml"}

// Config is the `.laminar.yaml` project configuration file: default
// command scope, default integer bit width, module search paths, and the
// solver to use (§11).
type Config struct {
	// DefaultScope is used for any per-sig scope omitted from a run/check
	// command's own scope annotation.
	DefaultScope int `yaml:"default_scope,omitempty"`

	// DefaultIntBits is the bit width for the two's-complement Int atoms
	// when a command's scope omits `but N int`.
	DefaultIntBits int `yaml:"default_int_bits,omitempty"`

	// ModulePaths are the module roots a ModuleResolver (modules.go)
	// searches for `open`ed modules. The cmd/laminar driver does not read
	// this field and does not resolve `open` declarations.
	ModulePaths []string `yaml:"module_paths,omitempty"`

	// Solver names a satsolver.Oracle implementation; "gini" is the only
	// built-in one. The cmd/laminar driver does not read this field and
	// always uses the gini oracle.
	Solver string `yaml:"solver,omitempty"`
}

// DefaultConfig returns the configuration used when no project file exists.
func DefaultConfig() *Config {
	return &Config{DefaultScope: 3, DefaultIntBits: 4, Solver: "gini"}
}

// LoadConfig finds and loads the nearest .laminar.yaml walking up from dir,
// falling back to DefaultConfig if none exists.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up
// to the filesystem root.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for d := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return "", ErrConfigNotFound
		}

		d = parent
	}
}

// LoadConfigFile loads a config from a specific path, filling in any
// zero-valued fields from DefaultConfig.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.DefaultScope == 0 {
		cfg.DefaultScope = 3
	}
	if cfg.DefaultIntBits == 0 {
		cfg.DefaultIntBits = 4
	}
	if cfg.Solver == "" {
		cfg.Solver = "gini"
	}

	return cfg, nil
}
