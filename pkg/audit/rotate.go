package audit

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Rotator rotates a CSV access log on a cron schedule. Rotation renames the
// current file; the recorder re-creates it with a fresh header on the next
// write, so no record is ever split across files.
type Rotator struct {
	cron *cron.Cron
}

// NewRotator schedules rotation of recorder with the given cron expression
// (standard five-field spec, e.g. "0 0 * * *" for daily at midnight).
func NewRotator(recorder *CSVRecorder, schedule string) (*Rotator, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := recorder.Rotate(); err != nil {
			slog.Error("scheduled access log rotation failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rotation schedule %q: %w", schedule, err)
	}
	return &Rotator{cron: c}, nil
}

// Start begins the rotation schedule.
func (r *Rotator) Start() {
	r.cron.Start()
}

// Stop halts the schedule. A rotation already in progress completes.
func (r *Rotator) Stop() {
	r.cron.Stop()
}
