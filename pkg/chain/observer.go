package chain

import (
	"context"
	"time"
)

// Run describes one Execute call.
type Run struct {
	ID        string
	Chain     string
	Workers   int
	StartedAt time.Time
	Duration  time.Duration
}

// Observer provides hooks around Execute, e.g. to persist or publish run results.
// BeforeRun errors abort the run before the source is scanned; AfterRun errors
// are returned from Execute unless the run itself already failed.
type Observer interface {
	BeforeRun(ctx context.Context, run Run) error
	AfterRun(ctx context.Context, run Run, results []*Payload, runErr error) error
}

// MultiObserver calls each observer in order. BeforeRun stops at the first error;
// AfterRun calls all of them and returns the first error.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) BeforeRun(ctx context.Context, run Run) error {
	for _, o := range m {
		if err := o.BeforeRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterRun(ctx context.Context, run Run, results []*Payload, runErr error) error {
	var first error
	for _, o := range m {
		if err := o.AfterRun(ctx, run, results, runErr); err != nil && first == nil {
			first = err
		}
	}
	return first
}
