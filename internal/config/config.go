// Package config loads vendorsync settings with viper.
//
// Precedence, highest first: command-line flags, environment variables,
// the config file given with --config, defaults. The environment variable
// names are the ones the sync scripts have always used
// (ALMA_VENDOR__OUTPUT_DIRPATH and friends).
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/store"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ALMA_VENDOR__"

// Configuration keys.
const (
	KeySourceFilepath  = "source_filepath"
	KeyOutputDirpath   = "output_dirpath"
	KeyAPIURLRoot      = "api_url_root"
	KeyAPIKey          = "api_key"
	KeyBackend         = "backend"
	KeyLimit           = "limit"
	KeyHTTPTimeout     = "http_timeout"
	KeyNormalizeField  = "normalize.field"
	KeyNormalizePrefix = "normalize.prefix"
)

// Config is the typed configuration passed to every component.
type Config struct {
	SourceFilepath string          `mapstructure:"source_filepath"`
	OutputDirpath  string          `mapstructure:"output_dirpath"`
	APIURLRoot     string          `mapstructure:"api_url_root"`
	APIKey         string          `mapstructure:"api_key"`
	Backend        string          `mapstructure:"backend"`
	Limit          int             `mapstructure:"limit"`
	HTTPTimeout    time.Duration   `mapstructure:"http_timeout"`
	Normalize      NormalizeConfig `mapstructure:"normalize"`
}

// NormalizeConfig selects the field the normalize stage rewrites.
type NormalizeConfig struct {
	Field  string `mapstructure:"field"`
	Prefix string `mapstructure:"prefix"`
}

// EnvName returns the environment variable bound to key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for _, key := range []string{
		KeySourceFilepath, KeyOutputDirpath, KeyAPIURLRoot, KeyAPIKey,
		KeyBackend, KeyLimit, KeyHTTPTimeout, KeyNormalizeField, KeyNormalizePrefix,
	} {
		// BindEnv only errors without a key.
		_ = v.BindEnv(key, EnvName(key))
	}
	return v
}

// SetDefaults configures default values for optional settings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, store.KindFile)
	v.SetDefault(KeyLimit, 0)
	v.SetDefault(KeyHTTPTimeout, time.Duration(0))
	v.SetDefault(KeyNormalizeField, "financial_sys_code")
	v.SetDefault(KeyNormalizePrefix, "S")
}

// BindFlags binds command-line flags to keys. Flags missing from fs are
// skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, flags map[string]string) error {
	for key, name := range flags {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag --%s", name)
		}
	}
	return nil
}

// Load reads configFile (when non-empty) into v and decodes the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Mark(
				errors.Wrapf(err, "read config file %s", configFile),
				errors.ErrConfiguration,
			)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode configuration"), errors.ErrConfiguration)
	}
	cfg.OutputDirpath = trimPath(cfg.OutputDirpath)
	cfg.APIURLRoot = trimPath(cfg.APIURLRoot)
	cfg.SourceFilepath = strings.TrimSpace(cfg.SourceFilepath)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return &cfg, nil
}

// ValidateForStages checks the settings every stage command needs: the four
// core options, a known backend and a non-negative limit.
func (c *Config) ValidateForStages() error {
	missing := c.missing(map[string]string{
		KeySourceFilepath: c.SourceFilepath,
		KeyOutputDirpath:  c.OutputDirpath,
		KeyAPIURLRoot:     c.APIURLRoot,
		KeyAPIKey:         c.APIKey,
	})
	if err := missingError(missing); err != nil {
		return err
	}
	return c.validateOptional()
}

// ValidateForStatus checks the settings the read-only status command needs.
func (c *Config) ValidateForStatus() error {
	if err := missingError(c.missing(map[string]string{KeyOutputDirpath: c.OutputDirpath})); err != nil {
		return err
	}
	return c.validateOptional()
}

func (c *Config) validateOptional() error {
	switch c.Backend {
	case "", store.KindFile, store.KindSQLite:
	default:
		return errors.Mark(
			errors.Newf("%s must be %q or %q, got %q", KeyBackend, store.KindFile, store.KindSQLite, c.Backend),
			errors.ErrConfiguration,
		)
	}
	if c.Limit < 0 {
		return errors.Mark(errors.Newf("%s must not be negative", KeyLimit), errors.ErrConfiguration)
	}
	if c.HTTPTimeout < 0 {
		return errors.Mark(errors.Newf("%s must not be negative", KeyHTTPTimeout), errors.ErrConfiguration)
	}
	if c.Normalize.Field == "" {
		return errors.Mark(errors.Newf("%s must not be empty", KeyNormalizeField), errors.ErrConfiguration)
	}
	if c.Normalize.Prefix == "" {
		return errors.Mark(errors.Newf("%s must not be empty", KeyNormalizePrefix), errors.ErrConfiguration)
	}
	return nil
}

// missing returns the keys, in a stable order, whose values are empty.
func (c *Config) missing(values map[string]string) []string {
	var out []string
	for _, key := range []string{KeySourceFilepath, KeyOutputDirpath, KeyAPIURLRoot, KeyAPIKey} {
		if v, ok := values[key]; ok && v == "" {
			out = append(out, key)
		}
	}
	return out
}

func missingError(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	envs := make([]string, len(keys))
	for i, k := range keys {
		envs[i] = EnvName(k)
	}
	return errors.WithHintf(
		errors.Mark(
			errors.Newf("missing required configuration: %s", strings.Join(keys, ", ")),
			errors.ErrConfiguration,
		),
		"set %s, pass the matching flags, or use --config", strings.Join(envs, ", "),
	)
}

func trimPath(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}
