package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pbp_data", c.DataDir)
	assert.Equal(t, filepath.Join("usable_data", "qb"), c.OutputDir)
	assert.Equal(t, []int{2019, 2020, 2021}, c.IngestSeasons)
	assert.Equal(t, []int{2020}, c.TrainSeasons)
	assert.Equal(t, []int{2021}, c.EvalSeasons)
	assert.Equal(t, OverwritePrompt, c.Overwrite)
	assert.Equal(t, 20, c.Top)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "qb.yaml")
	body := "data_dir: /data/pbp\ningest_seasons: [2010, 2011, 2012, 2013]\ntrain_seasons: [2011, 2012]\neval_seasons: [2013]\noverwrite: never\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/pbp", c.DataDir)
	assert.Equal(t, []int{2010, 2011, 2012, 2013}, c.IngestSeasons)
	assert.Equal(t, []int{2011, 2012}, c.TrainSeasons)
	assert.Equal(t, OverwriteNever, c.Overwrite)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20, c.Top)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "qb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: from-file\ntop: 5\n"), 0o644))
	t.Setenv("QBSTATS_OUTPUT_DIR", "from-env")
	t.Setenv("QBSTATS_TOP", "7")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.OutputDir)
	assert.Equal(t, 7, c.Top)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := Default()
	want.TrainSeasons = []int{2019, 2020}
	want.Overwrite = OverwriteAlways
	require.NoError(t, Save(want, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty ingest":     func(c *Config) { c.IngestSeasons = nil },
		"empty train":      func(c *Config) { c.TrainSeasons = nil },
		"empty eval":       func(c *Config) { c.EvalSeasons = nil },
		"overlap":          func(c *Config) { c.EvalSeasons = []int{2020, 2021} },
		"train not ingest": func(c *Config) { c.TrainSeasons = []int{2018} },
		"eval not ingest":  func(c *Config) { c.EvalSeasons = []int{2022} },
		"bad overwrite":    func(c *Config) { c.Overwrite = "maybe" },
		"negative top":     func(c *Config) { c.Top = -1 },
		"empty data dir":   func(c *Config) { c.DataDir = "" },
		"empty output dir": func(c *Config) { c.OutputDir = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateIngest_IgnoresPartition(t *testing.T) {
	c := Default()
	c.IngestSeasons = []int{2019}
	assert.NoError(t, c.ValidateIngest())
	assert.Error(t, c.Validate(), "train season 2020 is no longer ingested")
}
