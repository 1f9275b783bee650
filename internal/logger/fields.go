package logger

import (
	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// UnitKey is the logging context key for the id of a compile unit.
	UnitKey = "unit"
	// StageKey names the pipeline stage a log entry belongs to.
	StageKey = "stage"
	// ElapsedKey is the logging context key for the duration of a stage.
	ElapsedKey = "elapsed"
)

// NewUnitID returns a fresh id for a compile unit.
func NewUnitID() string {
	return uuid.NewString()
}

// Unit returns a field for tracking a compile unit.
func Unit(id string) zap.Field {
	return zap.String(UnitKey, id)
}

// Stage returns a field for the name of a pipeline stage.
func Stage(name string) zap.Field {
	return zap.String(StageKey, name)
}

// Size returns a human-readable byte count field.
func Size(key string, n int) zap.Field {
	return zap.String(key, humanize.IBytes(uint64(max(n, 0))))
}

// StartStage logs the start of a pipeline stage and returns a logger tagged
// with the stage together with a function that logs its end and duration.
func StartStage(log *zap.Logger, clk clock.Clock, name string) (*zap.Logger, func()) {
	log = log.With(Stage(name))
	start := clk.Now()
	log.Debug("Stage started")
	return log, func() {
		log.Debug("Stage finished", zap.Duration(ElapsedKey, clk.Now().Sub(start)))
	}
}
