package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/juju/clock"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

// HealthPolicy decides when a held connection must be validated and performs the validation.
//
// A connection is validated at most once per Interval. The probe is a driver ping bounded
// by Timeout. Time is read from Clock so that tests can drive the interval.
type HealthPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
}

// NewHealthPolicy returns a policy using the wall clock when clk is nil.
func NewHealthPolicy(interval, timeout time.Duration, clk clock.Clock) HealthPolicy {
	if clk == nil {
		clk = clock.WallClock
	}

	return HealthPolicy{Interval: interval, Timeout: timeout, Clock: clk}
}

// Due reports whether a probe is needed given the time of the last successful one.
// A zero lastCheck is always due.
func (p HealthPolicy) Due(lastCheck time.Time) bool {
	if lastCheck.IsZero() {
		return true
	}

	return p.Clock.Now().Sub(lastCheck) >= p.Interval
}

// Probe validates the connection. The returned error matches dbx.ErrValidationFailure.
func (p HealthPolicy) Probe(ctx context.Context, conn *sql.Conn) error {
	if conn == nil {
		return fmt.Errorf("%w: no connection", dbx.ErrValidationFailure)
	}

	probeCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	if err := conn.PingContext(probeCtx); err != nil {
		return fmt.Errorf("%w: %w", dbx.ErrValidationFailure, err)
	}

	return nil
}
