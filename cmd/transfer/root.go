package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/baderkha/fb-bronze/pkg/logger"
	"github.com/baderkha/fb-bronze/pkg/migrate"
	"github.com/baderkha/fb-bronze/pkg/migrate/config"
	"github.com/baderkha/fb-bronze/pkg/migrate/config/sourcecfg"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	tables     string
	blockSize  int
	workers    int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "transfer",
		Short:         "Copy firebird tables into the postgres bronze schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "job.json", "Job file, optional when everything comes from the environment")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Overrides the configured log level")
	rootCmd.PersistentFlags().StringVar(&opts.tables, "tables", "", "Comma separated table list, overrides the configured one")
	rootCmd.PersistentFlags().IntVar(&opts.blockSize, "block-size", 0, "Rows per page, overrides the configured one")
	rootCmd.PersistentFlags().IntVar(&opts.workers, "concurrency", 0, "Tables migrated at once, overrides the configured one")

	rootCmd.AddCommand(newRunCmd(opts), newRecoverCmd(opts), newScheduleCmd(opts))
	return rootCmd
}

// loadJob : dotenv, job file, env and flags, in increasing priority
func (o *rootOptions) loadJob(afs afero.Fs) (*config.Job, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg, err := config.Load(afs, o.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if list := sourcecfg.SplitList(o.tables); len(list) > 0 {
		cfg.SourceConfig.TableList = list
	}
	if o.blockSize > 0 {
		cfg.BatchRecordSize = o.blockSize
	}
	if o.workers > 0 {
		cfg.MaxConcurrency = o.workers
	}
	return cfg, nil
}

type session struct {
	cfg    *config.Job
	log    zerolog.Logger
	runner migrate.Runner
	closer io.Closer
}

func (s *session) Close() {
	if s.runner != nil {
		s.runner.CleanUp()
	}
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// open : config, logger and a connected runner
func (o *rootOptions) open(ctx context.Context) (*session, error) {
	afs := afero.NewOsFs()
	cfg, err := o.loadJob(afs)
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(afs, cfg.LogFile, cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, closer: closer}
	runner, err := migrate.NewFirebirdToPostgres(ctx, cfg, afs, log)
	if err != nil {
		log.Error().Err(err).Msg("could not start the transfer")
		s.Close()
		return nil, err
	}
	s.runner = runner
	return s, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
