package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/session"
)

// TimeoutMonitor represents a service that periodically expires the
// sessions that have been inactive for longer than the machine timeout.
type TimeoutMonitor struct {
	machine  *session.Machine
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTimeoutMonitor creates a new TimeoutMonitor service checking every
// interval.
func NewTimeoutMonitor(machine *session.Machine, interval time.Duration) *TimeoutMonitor {
	return &TimeoutMonitor{
		machine:  machine,
		interval: interval,
	}
}

// Start begins monitoring. It returns an error if the service is already
// running.
func (tm *TimeoutMonitor) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if tm.interval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", tm.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	tm.cancel = cancel
	tm.done = make(chan struct{})
	go tm.monitor(ctx, tm.done)
	log.Infow("timeout monitor started", "interval", tm.interval.String(), "timeout", tm.machine.Timeout().String())
	return nil
}

// Stop halts the monitoring service and waits for the running check.
func (tm *TimeoutMonitor) Stop() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		tm.cancel()
		<-tm.done
		tm.cancel = nil
	}
}

func (tm *TimeoutMonitor) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(tm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tm.check(now)
		}
	}
}

// check expires the inactive sessions at now.
func (tm *TimeoutMonitor) check(now time.Time) {
	ids, err := tm.machine.ExpireInactive(now)
	if len(ids) > 0 {
		expired := make([]string, len(ids))
		for i, id := range ids {
			expired[i] = id.String()
		}
		log.Infow("sessions expired", "count", len(ids), "sessions", expired)
	}
	if err != nil {
		log.Warnw("failed to expire inactive sessions", "error", err.Error())
	}
}
