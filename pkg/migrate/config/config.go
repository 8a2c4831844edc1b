package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/baderkha/fb-bronze/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/fb-bronze/pkg/migrate/config/targetcfg"
)

const DefaultBlockSize = 10000

// Config : configuration for the job
type Config[S any, T any] struct {
	MaxConcurrency  int                 `json:"max_concurrency"`
	BatchRecordSize int                 `json:"max_batch_record_size"`
	SourceConfig    S                   `json:"source"`
	Target          T                   `json:"target"`
	StatePath       string              `json:"state_path"`
	LogFile         string              `json:"log_file"`
	LogLevel        string              `json:"log_level"`
	RejectDir       string              `json:"reject_dir"`
	RejectArchive   targetcfg.S3Options `json:"reject_archive"`
	Schedule        string              `json:"schedule"`
}

// Job : firebird -> postgres job config
type Job = Config[sourcecfg.Firebird, targetcfg.Postgres]

// Load : reads the job file at path (optional when it does not exist), then
// lets environment variables override it and fills in defaults
func Load(fs afero.Fs, path string, getenv func(string) string) (*Job, error) {
	var cfg Job
	if path != "" {
		b, err := afero.ReadFile(fs, path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading %s : %w", path, err)
		default:
			if err := json.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parsing %s : %w", path, err)
			}
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	SetDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config[S, T]) jobEnv(getenv func(string) string) error {
	var finalErr error
	if v := getenv("BLOCK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			finalErr = multierror.Append(finalErr, fmt.Errorf("BLOCK_SIZE : %w", err))
		} else {
			c.BatchRecordSize = n
		}
	}
	if v := getenv("MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			finalErr = multierror.Append(finalErr, fmt.Errorf("MAX_CONCURRENCY : %w", err))
		} else {
			c.MaxConcurrency = n
		}
	}
	if v := getenv("SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return finalErr
}

func (c *Config[S, T]) setJobDefaults() {
	if c.BatchRecordSize <= 0 {
		c.BatchRecordSize = DefaultBlockSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 1
	}
	if c.StatePath == "" {
		c.StatePath = "state.sqlite"
	}
	if c.LogFile == "" {
		c.LogFile = "migration.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RejectDir == "" {
		c.RejectDir = "rejects"
	}
	if c.RejectArchive.MaxRetry <= 0 {
		c.RejectArchive.MaxRetry = 3
	}
}

// ApplyEnv : job level and per side environment overrides
func ApplyEnv(c *Job, getenv func(string) string) error {
	var finalErr error
	if err := c.jobEnv(getenv); err != nil {
		finalErr = multierror.Append(finalErr, err)
	}
	if err := c.SourceConfig.ApplyEnv(getenv); err != nil {
		finalErr = multierror.Append(finalErr, err)
	}
	if err := c.Target.ApplyEnv(getenv); err != nil {
		finalErr = multierror.Append(finalErr, err)
	}
	return finalErr
}

func SetDefaults(c *Job) {
	c.setJobDefaults()
	c.SourceConfig.SetDefaults()
	c.Target.SetDefaults()
}

// Validate : every problem at once
func Validate(c *Job) error {
	var finalErr error
	for _, err := range c.SourceConfig.Validate() {
		finalErr = multierror.Append(finalErr, err)
	}
	for _, err := range c.Target.Validate() {
		finalErr = multierror.Append(finalErr, err)
	}
	if c.BatchRecordSize <= 0 {
		finalErr = multierror.Append(finalErr, fmt.Errorf("max_batch_record_size must be positive"))
	}
	return finalErr
}
