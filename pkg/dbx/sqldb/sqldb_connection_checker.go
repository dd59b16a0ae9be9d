package sqldb

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

// ConnectionChecker periodically restores the managed connection while the process runs.
//
// Each check reconnects an offline manager and lets an online one validate its connection
// through GetConnection, which only probes once the health-check interval has elapsed.
// A healthy connection is never replaced.
type ConnectionChecker struct {
	mgr      dbx.ConnectionManager
	interval time.Duration
	clock    clock.Clock
	onChange func(online bool)

	mu       sync.Mutex
	lastSeen *bool
}

// NewConnectionChecker - ConnectionChecker constructor.
// onChange, when not nil, is called after the first check and whenever reachability flips.
func NewConnectionChecker(mgr dbx.ConnectionManager, interval time.Duration, clk clock.Clock, onChange func(online bool)) *ConnectionChecker {
	if clk == nil {
		clk = clock.WallClock
	}

	if interval <= 0 {
		interval = dbx.DefaultReconnectInterval
	}

	return &ConnectionChecker{
		mgr:      mgr,
		interval: interval,
		clock:    clk,
		onChange: onChange,
	}
}

// Run checks immediately and then once per interval until ctx is done.
// It returns the context error.
func (c *ConnectionChecker) Run(ctx context.Context) error {
	for {
		c.Check(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.interval):
		}
	}
}

// Check performs one recovery attempt and reports whether the database is reachable.
func (c *ConnectionChecker) Check(ctx context.Context) bool {
	var online bool

	if c.mgr.IsOfflineMode() {
		online = c.mgr.TryReconnect(ctx)
	} else {
		conn, err := c.mgr.GetConnection(ctx)
		online = err == nil && conn != nil
	}

	c.report(ctx, online)

	return online
}

func (c *ConnectionChecker) report(ctx context.Context, online bool) {
	c.mu.Lock()
	changed := c.lastSeen == nil || *c.lastSeen != online
	c.lastSeen = &online
	c.mu.Unlock()

	if !changed {
		return
	}

	if online {
		logx.GetLogger().LogInfo(ctx, "Database connection available")
	} else {
		logx.GetLogger().LogWarning(ctx, "Database connection unavailable, offline mode active")
	}

	if c.onChange != nil {
		c.onChange(online)
	}
}
