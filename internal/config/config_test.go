package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vendorsync/internal/errors"
)

func setCoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ALMA_VENDOR__SOURCE_FILEPATH", "/data/codes.txt")
	t.Setenv("ALMA_VENDOR__OUTPUT_DIRPATH", "/data/out/")
	t.Setenv("ALMA_VENDOR__API_URL_ROOT", "https://api.example.test/almaws/v1/acq/vendors/")
	t.Setenv("ALMA_VENDOR__API_KEY", "key123")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ALMA_VENDOR__OUTPUT_DIRPATH", EnvName(KeyOutputDirpath))
	assert.Equal(t, "ALMA_VENDOR__NORMALIZE_PREFIX", EnvName(KeyNormalizePrefix))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Backend)
	assert.Zero(t, cfg.Limit)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.Equal(t, "financial_sys_code", cfg.Normalize.Field)
	assert.Equal(t, "S", cfg.Normalize.Prefix)
}

func TestLoad_Environment(t *testing.T) {
	setCoreEnv(t)
	t.Setenv("ALMA_VENDOR__BACKEND", "SQLite")
	t.Setenv("ALMA_VENDOR__LIMIT", "25")
	t.Setenv("ALMA_VENDOR__HTTP_TIMEOUT", "30s")
	t.Setenv("ALMA_VENDOR__NORMALIZE_PREFIX", "X")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "/data/codes.txt", cfg.SourceFilepath)
	assert.Equal(t, "/data/out", cfg.OutputDirpath, "trailing slash is trimmed")
	assert.Equal(t, "https://api.example.test/almaws/v1/acq/vendors", cfg.APIURLRoot)
	assert.Equal(t, "key123", cfg.APIKey)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 25, cfg.Limit)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "X", cfg.Normalize.Prefix)
	require.NoError(t, cfg.ValidateForStages())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendorsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_filepath: /srv/codes.txt
output_dirpath: /srv/out
api_url_root: https://api.example.test/vendors
api_key: from-file
limit: 3
normalize:
  field: code
  prefix: V
`), 0600))
	t.Setenv("ALMA_VENDOR__API_KEY", "from-env")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/codes.txt", cfg.SourceFilepath)
	assert.Equal(t, "from-env", cfg.APIKey, "environment beats the config file")
	assert.Equal(t, 3, cfg.Limit)
	assert.Equal(t, NormalizeConfig{Field: "code", Prefix: "V"}, cfg.Normalize)
}

func TestLoad_EmptyPrefixInConfigFileIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendorsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_filepath: /srv/codes.txt
output_dirpath: /srv/out
api_url_root: https://api.example.test/vendors
api_key: k
normalize:
  prefix: ""
`), 0600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Normalize.Prefix, "an explicit empty prefix is not replaced by the default")

	err = cfg.ValidateForStages()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), KeyNormalizePrefix)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestBindFlags_OverrideEnvironment(t *testing.T) {
	setCoreEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output-dir", "", "")
	fs.Int("limit", 0, "")
	require.NoError(t, fs.Parse([]string{"--output-dir", "/flag/out", "--limit", "7"}))

	v := New()
	require.NoError(t, BindFlags(v, fs, map[string]string{
		KeyOutputDirpath: "output-dir",
		KeyLimit:         "limit",
		KeyAPIKey:        "api-key", // not defined on fs: skipped
	}))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "/flag/out", cfg.OutputDirpath)
	assert.Equal(t, 7, cfg.Limit)
	assert.Equal(t, "key123", cfg.APIKey)
}

func TestValidateForStages_Missing(t *testing.T) {
	t.Setenv("ALMA_VENDOR__OUTPUT_DIRPATH", "/data/out")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	err = cfg.ValidateForStages()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), "source_filepath, api_url_root, api_key")

	hints := errors.GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0], "ALMA_VENDOR__SOURCE_FILEPATH")

	require.NoError(t, cfg.ValidateForStatus(), "status needs only the output directory")
}

func TestValidate_Optional(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "postgres" }},
		{name: "negative limit", mutate: func(c *Config) { c.Limit = -1 }},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTPTimeout = -time.Second }},
		{name: "empty normalize field", mutate: func(c *Config) { c.Normalize.Field = "" }},
		{name: "empty normalize prefix", mutate: func(c *Config) { c.Normalize.Prefix = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				SourceFilepath: "s", OutputDirpath: "o", APIURLRoot: "https://a", APIKey: "k",
				Backend: "file", Normalize: NormalizeConfig{Field: "f", Prefix: "S"},
			}
			tt.mutate(cfg)

			err := cfg.ValidateForStages()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
		})
	}
}

func TestTrimPath(t *testing.T) {
	assert.Equal(t, "/a/b", trimPath("/a/b//"))
	assert.Equal(t, "/", trimPath("/"))
	assert.Equal(t, "", trimPath("  "))
}
