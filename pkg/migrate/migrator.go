package migrate

import (
	"context"

	"github.com/baderkha/fb-bronze/pkg/migrate/state"
)

// Runner : runs migration between a tap and source
type Runner interface {
	Run(ctx context.Context) (*Summary, error)                   // fresh run
	Recover(ctx context.Context, runID string) (*Summary, error) // attempts to recover if run failed last time
	GetStateManager() state.Manager
	CleanUp()
}
