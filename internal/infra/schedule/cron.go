package schedule

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner drives the periodic booking sweeps. Specs use six-field cron
// expressions (seconds precision) evaluated in UTC.
type Runner struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	return &Runner{cron: c, logger: logger}
}

// Register attaches a named job to the given cron spec.
func (r *Runner) Register(spec, name string, fn func()) error {
	_, err := r.cron.AddFunc(spec, fn)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("cron registration failed", "job", name, "spec", spec, "error", err)
		}
		return err
	}
	if r.logger != nil {
		r.logger.Info("cron job registered", "job", name, "spec", spec)
	}
	return nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop waits for any in-flight job to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
