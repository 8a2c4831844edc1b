package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baderkha/fb-bronze/pkg/migrate/config/sourcecfg"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

const jobJSON = `{
	"max_concurrency": 2,
	"max_batch_record_size": 5000,
	"source": {
		"host": "fb.local",
		"database": "/data/erp.fdb",
		"user_name": "SYSDBA",
		"password": "masterkey",
		"table_list": ["FC01000", "FC02000"]
	},
	"target": {
		"host": "pg.local",
		"db": "warehouse",
		"user_name": "loader",
		"password": "secret"
	},
	"reject_archive": {"bucket": "rejects-bucket"}
}`

func TestLoadFromFileWithDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "job.json", []byte(jobJSON), 0644))

	cfg, err := Load(fs, "job.json", envOf(nil))

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, 5000, cfg.BatchRecordSize)
	assert.Equal(t, []string{"FC01000", "FC02000"}, cfg.SourceConfig.TableList)
	assert.Equal(t, 3050, cfg.SourceConfig.Port)
	assert.Equal(t, "ISO8859_1", cfg.SourceConfig.Charset)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "bronze", cfg.Target.Schema)
	assert.Equal(t, 5, cfg.Target.PoolSize)
	assert.Equal(t, "state.sqlite", cfg.StatePath)
	assert.Equal(t, "migration.log", cfg.LogFile)
	assert.Equal(t, "rejects", cfg.RejectDir)
	assert.Equal(t, "rejects-bucket", cfg.RejectArchive.Bucket)
	assert.Equal(t, 3, cfg.RejectArchive.MaxRetry)
}

func TestLoadEnvOnly(t *testing.T) {
	env := envOf(map[string]string{
		"FIREBIRD_HOST":     "fb",
		"FIREBIRD_DATABASE": "erp.fdb",
		"FIREBIRD_USER":     "SYSDBA",
		"FIREBIRD_PASSWORD": "masterkey",
		"POSTGRES_HOST":     "pg",
		"POSTGRES_PORT":     "6543",
		"POSTGRES_DB":       "dw",
		"POSTGRES_USER":     "u",
		"POSTGRES_PASSWORD": "p",
		"BLOCK_SIZE":        "250",
	})

	cfg, err := Load(afero.NewMemMapFs(), "missing.json", env)

	require.NoError(t, err)
	assert.Equal(t, "fb", cfg.SourceConfig.Host)
	assert.Equal(t, 6543, cfg.Target.Port)
	assert.Equal(t, 250, cfg.BatchRecordSize)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, DefaultBlockSize, 10000)
	assert.Equal(t, sourcecfg.DefaultTableList, cfg.SourceConfig.TableList)
}

func TestEnvOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "job.json", []byte(jobJSON), 0644))

	cfg, err := Load(fs, "job.json", envOf(map[string]string{
		"POSTGRES_SCHEMA": "raw",
		"TABLES":          "FC07000, FC07100,,",
		"SCHEDULE":        "0 2 * * *",
	}))

	require.NoError(t, err)
	assert.Equal(t, "raw", cfg.Target.Schema)
	assert.Equal(t, []string{"FC07000", "FC07100"}, cfg.SourceConfig.TableList)
	assert.Equal(t, "0 2 * * *", cfg.Schedule)
}

func TestValidateReportsEverything(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "", envOf(nil))

	require.Error(t, err)
	for _, want := range []string{
		"source : host is required",
		"source : database is required",
		"source : user_name is required",
		"target : host is required",
		"target : db is required",
		"target : user_name is required",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "", envOf(map[string]string{
		"BLOCK_SIZE":    "lots",
		"FIREBIRD_PORT": "x",
	}))

	require.Error(t, err)
	assert.ErrorContains(t, err, "BLOCK_SIZE")
	assert.ErrorContains(t, err, "FIREBIRD_PORT")
}

func TestLoadBadJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "job.json", []byte("{"), 0644))

	_, err := Load(fs, "job.json", envOf(nil))

	assert.ErrorContains(t, err, "parsing job.json")
}
