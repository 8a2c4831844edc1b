package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", func(context.Context) error { return nil }, zerolog.Nop())

	assert.ErrorContains(t, err, "invalid schedule")
}

func TestEntryRunsJob(t *testing.T) {
	var calls int
	s, err := New("@every 1h", func(context.Context) error {
		calls++
		return nil
	}, zerolog.Nop())
	require.NoError(t, err)

	s.Entry().WrappedJob.Run()
	s.Entry().WrappedJob.Run()

	assert.Equal(t, 2, calls)
}

func TestJobErrorsAndPanicsDoNotEscape(t *testing.T) {
	s, err := New("0 2 * * *", func(context.Context) error { panic("boom") }, zerolog.Nop())
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.Entry().WrappedJob.Run() })

	s, err = New("0 2 * * *", func(context.Context) error { return errors.New("boom") }, zerolog.Nop())
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.Entry().WrappedJob.Run() })
}

func TestCancelledContextSkipsRun(t *testing.T) {
	var calls int
	s, err := New("@hourly", func(context.Context) error {
		calls++
		return nil
	}, zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	cancel()
	s.Entry().WrappedJob.Run()
	s.Stop()

	assert.Equal(t, 0, calls)
}
