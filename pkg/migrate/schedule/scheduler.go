// Package schedule triggers the transfer on a cron expression.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job : one triggered run
type Job func(ctx context.Context) error

// Scheduler : runs a Job on a cron spec, never two at once
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	entryID cron.EntryID
	ctx     context.Context
	log     zerolog.Logger
}

// New : parses spec (5 fields, or descriptors such as @hourly)
func New(spec string, job Job, log zerolog.Logger) (*Scheduler, error) {
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec: spec,
		job:  job,
		ctx:  context.Background(),
		log:  log,
	}
	id, err := s.cron.AddJob(spec, cron.FuncJob(s.tick))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q : %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	s.log.Info().Str("schedule", s.spec).Msg("scheduled run starting")
	if err := s.job(s.ctx); err != nil {
		s.log.Error().Err(err).Str("schedule", s.spec).Msg("scheduled run failed")
		return
	}
	s.log.Info().Str("schedule", s.spec).Msg("scheduled run finished")
}

// Start : runs in the background until ctx is done, ctx is handed to every run
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info().Str("schedule", s.spec).Time("next", s.cron.Entry(s.entryID).Next).Msg("scheduler started")
}

// Stop : stops triggering and waits for a running job to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Entry : the scheduled entry, next and previous trigger times
func (s *Scheduler) Entry() cron.Entry {
	return s.cron.Entry(s.entryID)
}

type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron : " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron : " + msg)
}
