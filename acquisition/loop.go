// Package acquisition drives a telemetry source on a fixed cadence: poll,
// normalize, publish. It owns the source exclusively, tolerates an
// unreliable link via a small explicit state machine, and never lets a slow
// consumer stall the polling cadence.
package acquisition

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emusa/energymon/meter"
	"github.com/emusa/energymon/normalize"
	"github.com/emusa/energymon/telemetry"
)

// State is the acquisition loop's connection state.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Polling      State = "polling"
	Backoff      State = "backoff"
)

// Config carries the loop's timing knobs. The backoff and failure-threshold
// constants are deliberately configuration, not hardcoded guesses.
type Config struct {
	PollInterval     time.Duration // cadence between read cycles
	BackoffInitial   time.Duration // first reconnect delay
	BackoffMax       time.Duration // reconnect delay cap
	BackoffFactor    float64       // growth per failed reconnect round
	TimeoutThreshold int           // consecutive failed cycles tolerated before reconnecting
	HistorySize      int           // readings kept for the live dashboard
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 2
	}
	if c.TimeoutThreshold < 1 {
		c.TimeoutThreshold = 3
	}
	if c.HistorySize < 1 {
		c.HistorySize = 600
	}
	return c
}

// Status is an observable snapshot of the loop for the dashboard/operator.
type Status struct {
	State               State
	LastError           string
	ConsecutiveFailures int
	ReadingsPublished   uint64
	ReadingsDropped     uint64 // total evictions across all subscribers
	LastReadingAt       time.Time
}

// Loop polls a meter.Source and fans every normalized Reading out to the
// registered subscribers. One Loop per source; cycles never overlap.
type Loop struct {
	source meter.Source
	cfg    Config
	logger *slog.Logger

	history  *telemetry.Ring
	previous *telemetry.Reading

	mu     sync.Mutex
	subs   []*Subscription
	status Status
}

func New(source meter.Source, cfg Config) *Loop {
	cfg = cfg.withDefaults()
	return &Loop{
		source:  source,
		cfg:     cfg,
		logger:  slog.Default().With("component", "acquisition"),
		history: telemetry.NewRing(cfg.HistorySize),
		status:  Status{State: Disconnected},
	}
}

// Run executes the state machine until ctx is cancelled. Cancellation is
// checked during every wait, so Run returns within one polling period.
func (l *Loop) Run(ctx context.Context) error {
	defer l.source.Close()

	backoff := l.cfg.BackoffInitial
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch l.state() {
		case Disconnected:
			l.setState(Connecting)

		case Connecting:
			if err := l.source.Connect(ctx); err != nil {
				l.logger.Warn("Connect failed", "error", err)
				l.recordError(err, failures)
				l.setState(Backoff)
				continue
			}
			l.logger.Info("Source connected")
			backoff = l.cfg.BackoffInitial
			failures = 0
			l.clearError()
			l.setState(Polling)

		case Backoff:
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = time.Duration(float64(backoff) * l.cfg.BackoffFactor)
			if backoff > l.cfg.BackoffMax {
				backoff = l.cfg.BackoffMax
			}
			l.source.Close()
			l.setState(Connecting)

		case Polling:
			if !sleep(ctx, l.cfg.PollInterval) {
				return ctx.Err()
			}

			sample, err := l.source.ReadAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures++
				l.recordError(err, failures)
				l.logger.Warn("Read cycle failed", "error", err, "consecutiveFailures", failures)
				if failures >= l.cfg.TimeoutThreshold {
					// the link is gone, not just noisy: tear down and reconnect
					l.source.Close()
					failures = 0
					l.setState(Backoff)
				}
				// below the threshold a transient failure just retries next cycle
				continue
			}
			failures = 0
			l.clearError()

			reading := normalize.Normalize(sample, l.previous, time.Now())
			l.previous = &reading
			l.publish(reading)
		}
	}
}

// publish hands the reading to the history ring and every subscriber.
// Fire-and-forget per subscriber: a full queue drops its oldest entry.
func (l *Loop) publish(reading telemetry.Reading) {
	l.history.Push(reading)

	l.mu.Lock()
	subs := l.subs
	l.status.ReadingsPublished++
	l.status.LastReadingAt = reading.Time
	l.mu.Unlock()

	for _, s := range subs {
		s.offer(reading)
	}
}

// Latest returns the most recent reading for the dashboard.
func (l *Loop) Latest() (telemetry.Reading, bool) {
	return l.history.Latest()
}

// History returns the rolling window of recent readings, oldest first.
func (l *Loop) History() []telemetry.Reading {
	return l.history.Snapshot()
}

// Status returns an observable snapshot of the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.status
	for _, sub := range l.subs {
		s.ReadingsDropped += sub.Dropped()
	}
	return s
}

func (l *Loop) state() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status.State
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.State != s {
		l.logger.Debug("State transition", "from", l.status.State, "to", s)
	}
	l.status.State = s
}

func (l *Loop) recordError(err error, failures int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.LastError = err.Error()
	l.status.ConsecutiveFailures = failures
}

func (l *Loop) clearError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.LastError = ""
	l.status.ConsecutiveFailures = 0
}

// sleep waits for d or for cancellation, whichever comes first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
