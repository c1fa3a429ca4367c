// Package config loads qbstats settings from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Overwrite modes for existing artifacts.
const (
	OverwritePrompt = "prompt"
	OverwriteAlways = "always"
	OverwriteNever  = "never"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full set of run settings.
type Config struct {
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	DBPath        string `mapstructure:"db_path" yaml:"db_path"`
	IngestSeasons []int  `mapstructure:"ingest_seasons" yaml:"ingest_seasons"`
	TrainSeasons  []int  `mapstructure:"train_seasons" yaml:"train_seasons"`
	EvalSeasons   []int  `mapstructure:"eval_seasons" yaml:"eval_seasons"`
	Overwrite     string `mapstructure:"overwrite" yaml:"overwrite"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	Top           int    `mapstructure:"top" yaml:"top"`
}

// Dir returns ~/.qbstats, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qbstats"
	}
	return filepath.Join(home, ".qbstats")
}

// DefaultPath is where Save and Load look when no file is given.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:       "pbp_data",
		OutputDir:     filepath.Join("usable_data", "qb"),
		DBPath:        filepath.Join(Dir(), "runs.db"),
		IngestSeasons: []int{2019, 2020, 2021},
		TrainSeasons:  []int{2020},
		EvalSeasons:   []int{2021},
		Overwrite:     OverwritePrompt,
		LogLevel:      "info",
		Top:           20,
	}
}

// Load reads configuration. Precedence: env (QBSTATS_*) > config file > defaults.
// Command-line flags are applied on top by the caller.
// A missing default config file is not an error; a missing explicit one is.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QBSTATS")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("ingest_seasons", d.IngestSeasons)
	v.SetDefault("train_seasons", d.TrainSeasons)
	v.SetDefault("eval_seasons", d.EvalSeasons)
	v.SetDefault("overwrite", d.Overwrite)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("top", d.Top)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Save writes c as YAML to path, or to DefaultPath when path is empty.
func Save(c *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ValidateIngest checks the settings needed to load and aggregate.
func (c *Config) ValidateIngest() error {
	switch {
	case len(c.IngestSeasons) == 0:
		return fmt.Errorf("%w: ingest_seasons is empty", ErrInvalid)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir is empty", ErrInvalid)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output_dir is empty", ErrInvalid)
	}
	switch c.Overwrite {
	case OverwritePrompt, OverwriteAlways, OverwriteNever:
	default:
		return fmt.Errorf("%w: overwrite must be prompt, always or never (got %q)", ErrInvalid, c.Overwrite)
	}
	return nil
}

// Validate checks everything a full run needs: the ingest settings, two
// non-empty disjoint season sets drawn from the ingest seasons, and top.
func (c *Config) Validate() error {
	if err := c.ValidateIngest(); err != nil {
		return err
	}
	switch {
	case len(c.TrainSeasons) == 0:
		return fmt.Errorf("%w: train_seasons is empty", ErrInvalid)
	case len(c.EvalSeasons) == 0:
		return fmt.Errorf("%w: eval_seasons is empty", ErrInvalid)
	case c.Top < 0:
		return fmt.Errorf("%w: top must not be negative", ErrInvalid)
	}
	for _, s := range c.TrainSeasons {
		if slices.Contains(c.EvalSeasons, s) {
			return fmt.Errorf("%w: season %d is in both train_seasons and eval_seasons", ErrInvalid, s)
		}
	}
	for _, set := range []struct {
		name    string
		seasons []int
	}{{"train_seasons", c.TrainSeasons}, {"eval_seasons", c.EvalSeasons}} {
		for _, s := range set.seasons {
			if !slices.Contains(c.IngestSeasons, s) {
				return fmt.Errorf("%w: %s season %d is not in ingest_seasons", ErrInvalid, set.name, s)
			}
		}
	}
	return nil
}
