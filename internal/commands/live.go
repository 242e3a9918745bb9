package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/huddle/internal/live"
)

const connectPoll = 50 * time.Millisecond

// liveSession runs a live.Manager in the background for one command.
type liveSession struct {
	mgr  *live.Manager
	done chan error
}

func startLive(ctx context.Context, mgr *live.Manager) *liveSession {
	s := &liveSession{mgr: mgr, done: make(chan error, 1)}
	go func() {
		s.done <- mgr.Run(ctx)
	}()
	return s
}

// waitConnected blocks until the manager is connected and ready reports
// true, or the timeout expires.
func (s *liveSession) waitConnected(ctx context.Context, timeout time.Duration, ready func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(connectPoll)
	defer ticker.Stop()

	for {
		if s.mgr.State() == live.StateConnected && (ready == nil || ready()) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("live channel not ready after %s", timeout)
		case <-ticker.C:
		}
	}
}

// stop closes the manager and waits for its loop to exit.
func (s *liveSession) stop() {
	_ = s.mgr.Close()
	<-s.done
}
