package migrate

import (
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Observer : receives progress after every processed page
type Observer interface {
	OnProgress(tableName string, rowsProcessed int, rowsRemaining int)
}

// ObserverFunc : adapts a func to Observer
type ObserverFunc func(tableName string, rowsProcessed int, rowsRemaining int)

func (f ObserverFunc) OnProgress(tableName string, rowsProcessed int, rowsRemaining int) {
	f(tableName, rowsProcessed, rowsRemaining)
}

// NewLogObserver : progress lines on the given logger
func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// LogObserver : writes a human readable progress line per page
type LogObserver struct {
	log zerolog.Logger
}

func (l *LogObserver) OnProgress(tableName string, rowsProcessed int, rowsRemaining int) {
	l.log.Info().
		Str("table", tableName).
		Int("processed", rowsProcessed).
		Int("remaining", rowsRemaining).
		Msgf("%s : +%s rows, %s remaining", tableName, humanize.Comma(int64(rowsProcessed)), humanize.Comma(int64(rowsRemaining)))
}

type nopObserver struct{}

func (nopObserver) OnProgress(string, int, int) {}
