package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/errorx"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

var errForcedOffline = errors.New("offline mode forced")

var _ dbx.ConnectionManager = (*ConnManager)(nil)

//###################################
//#    ConnManager - dbx manager.    #
//###################################

// snapshot is an immutable view of the manager state. A new value is published on every
// mutation so that readers never need the lock.
type snapshot struct {
	state     dbx.ConnectionState
	db        *sql.DB
	conn      *sql.Conn
	lastCheck time.Time
	reason    error
}

// ConnManager - single connection manager on top of database/sql.
// It implements dbx.ConnectionManager.
//
// The managed handle is a *sql.Conn reserved from a *sql.DB capped at one open connection,
// so the process holds exactly one physical session. State transitions, validation probes
// and exclusive use through Acquire are serialized by one mutex; IsOfflineMode,
// IsConnectionManaged and GetConnection calls inside the health-check interval read the
// published snapshot without locking.
type ConnManager struct {
	cfg          dbx.ConnConfig
	dialect      dbx.Dialect
	health       HealthPolicy
	clock        clock.Clock
	opener       Opener
	afterConnect func(ctx context.Context, conn *sql.Conn) error

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// Option configures a ConnManager.
type Option func(*ConnManager)

// WithClock sets the clock used for health-check timestamps.
func WithClock(clk clock.Clock) Option {
	return func(m *ConnManager) {
		if clk != nil {
			m.clock = clk
		}
	}
}

// WithOpener replaces the function opening the underlying *sql.DB.
func WithOpener(opener Opener) Option {
	return func(m *ConnManager) {
		if opener != nil {
			m.opener = opener
		}
	}
}

// WithAfterConnect registers a hook run on every new connection, after validation.
// A hook failure is treated as a connect failure.
func WithAfterConnect(fn func(ctx context.Context, conn *sql.Conn) error) Option {
	return func(m *ConnManager) {
		m.afterConnect = fn
	}
}

// NewConnManager creates a manager in the Uninitialized state. No I/O happens until
// Initialize, GetConnection or TryReconnect is called.
//
// Missing configuration values are replaced by their defaults.
//
// Example Usage:
//
//	mgr := sqldb.NewConnManager(cfg.GetDatabaseConfig().ConnConfig())
//	if !mgr.Initialize(ctx) {
//	    // running in offline mode
//	}
//	defer mgr.Shutdown(ctx)
func NewConnManager(cfg dbx.ConnConfig, opts ...Option) *ConnManager {
	cfg = cfg.WithDefaults()

	m := &ConnManager{
		cfg:     cfg,
		dialect: dbx.DialectFor(cfg.Driver),
		clock:   clock.WallClock,
		opener:  OpenDB,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.health = NewHealthPolicy(cfg.HealthCheckInterval, cfg.ValidationTimeout, m.clock)
	m.snap.Store(&snapshot{state: dbx.StateUninitialized})

	return m
}

// Initialize establishes the managed connection.
//
// Returns true when the manager is Online afterwards. When a connection is already held it
// is reused as long as it is within the health-check interval or passes a validation probe;
// otherwise it is replaced. Any failure (missing driver, connect error, failed post-connect
// validation) leaves the manager Offline and returns false.
func (m *ConnManager) Initialize(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.initializeLocked(ctx)
}

// GetConnection returns the managed connection, validating it when the health-check
// interval has elapsed.
//
// Returns:
//   - (conn, nil) when online.
//   - (nil, nil) when offline, including when a failed probe could not be recovered by one reconnect.
//   - (nil, *errorx.ConnectionError) when the manager was never initialized and the lazy
//     initialization failed. The manager is Offline afterwards.
//
// The caller must not close the returned connection.
func (m *ConnManager) GetConnection(ctx context.Context) (*sql.Conn, error) {
	s := m.snap.Load()

	switch {
	case s.state == dbx.StateOffline:
		return nil, nil
	case s.state == dbx.StateOnline && !m.health.Due(s.lastCheck):
		return s.conn, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getConnectionLocked(ctx)
}

// Acquire returns the managed connection for exclusive use until release is called.
//
// Every state transition and every other Acquire waits for release, so work done on the
// connection (typically a transaction) never interleaves with another caller's. While
// holding the connection, only use the returned handle and the lock-free methods
// (IsOfflineMode, IsConnectionManaged): any other method of the manager would wait for
// the release.
//
// When no connection is available the error matches dbx.ErrOffline, or is the
// *errorx.ConnectionError of a failed lazy initialization. release is never nil.
func (m *ConnManager) Acquire(ctx context.Context) (*sql.Conn, func(), error) {
	m.mu.Lock()

	conn, err := m.getConnectionLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, func() {}, err
	}

	if conn == nil {
		m.mu.Unlock()
		return nil, func() {}, errors.WithStack(dbx.ErrOffline)
	}

	return conn, sync.OnceFunc(m.mu.Unlock), nil
}

// TryReconnect discards the current connection, if any, and initializes a new one.
// Returns true when the manager is Online afterwards.
func (m *ConnManager) TryReconnect(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	logx.GetLogger().LogInfo(ctx, "Attempting database reconnection")

	m.discardLocked(ctx)
	m.publish(&snapshot{state: dbx.StateUninitialized})

	return m.initializeLocked(ctx)
}

// SetOfflineMode forces the manager offline, closing the connection, or leaves offline
// mode through a reconnect. Returns true when the requested mode is in effect.
func (m *ConnManager) SetOfflineMode(ctx context.Context, offline bool) bool {
	if !offline {
		return m.TryReconnect(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.discardLocked(ctx)
	m.publish(&snapshot{state: dbx.StateOffline, reason: errForcedOffline})
	logx.GetLogger().LogWarning(ctx, "Database offline mode forced")

	return true
}

// IsOfflineMode reports whether the manager is Offline. It never blocks and never performs I/O.
func (m *ConnManager) IsOfflineMode() bool {
	return m.snap.Load().state == dbx.StateOffline
}

// IsConnected reports whether a usable connection is available, validating it when due.
func (m *ConnManager) IsConnected(ctx context.Context) bool {
	conn, err := m.GetConnection(ctx)

	return err == nil && conn != nil
}

// IsConnectionManaged reports whether conn is the handle currently owned by the manager.
func (m *ConnManager) IsConnectionManaged(conn *sql.Conn) bool {
	if conn == nil {
		return false
	}

	return m.snap.Load().conn == conn
}

// GetConnectionStatus returns a diagnostic status. A due validation probe is performed,
// but a failing connection is reported as UNHEALTHY rather than replaced.
func (m *ConnManager) GetConnectionStatus(ctx context.Context) dbx.ConnectionStatus {
	s := m.snap.Load()

	switch s.state {
	case dbx.StateOffline:
		return dbx.StatusOffline
	case dbx.StateUninitialized:
		return dbx.StatusNotInitialized
	}

	if !m.health.Due(s.lastCheck) {
		return dbx.StatusOnline
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s = m.snap.Load()

	switch s.state {
	case dbx.StateOffline:
		return dbx.StatusOffline
	case dbx.StateUninitialized:
		return dbx.StatusNotInitialized
	}

	if !m.health.Due(s.lastCheck) || m.probeLocked(ctx, s) {
		return dbx.StatusOnline
	}

	return dbx.StatusUnhealthy
}

// Shutdown closes the connection and leaves the manager Offline with no health-check
// timestamp. Calling it more than once is harmless.
func (m *ConnManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hadConnection := m.snap.Load().conn != nil

	m.discardLocked(ctx)
	m.publish(&snapshot{state: dbx.StateOffline})

	if hadConnection {
		logx.GetLogger().LogInfo(ctx, "Database connection closed")
	}
}

// ConfigurationSummary renders the configuration, password masked, with the current mode and status.
func (m *ConnManager) ConfigurationSummary(ctx context.Context) string {
	return fmt.Sprintf("%s\n  Offline Mode: %t\n  Connection Status: %s",
		m.cfg.Summary(),
		m.IsOfflineMode(),
		m.GetConnectionStatus(ctx).Description())
}

// State returns the current lifecycle state.
func (m *ConnManager) State() dbx.ConnectionState {
	return m.snap.Load().state
}

// LastHealthCheck returns the time of the last successful connect or probe.
// It is zero when no connection is held.
func (m *ConnManager) LastHealthCheck() time.Time {
	return m.snap.Load().lastCheck
}

// OfflineReason returns the failure that put the manager offline, if any.
func (m *ConnManager) OfflineReason() error {
	s := m.snap.Load()
	if s.state != dbx.StateOffline {
		return nil
	}

	return s.reason
}

// Config returns the effective configuration.
func (m *ConnManager) Config() dbx.ConnConfig {
	return m.cfg
}

// Dialect returns the SQL dialect of the configured driver.
func (m *ConnManager) Dialect() dbx.Dialect {
	return m.dialect
}

func (m *ConnManager) publish(s *snapshot) {
	m.snap.Store(s)
}

func (m *ConnManager) initializeLocked(ctx context.Context) bool {
	s := m.snap.Load()

	if s.state == dbx.StateOnline {
		if !m.health.Due(s.lastCheck) || m.probeLocked(ctx, s) {
			return true
		}

		logx.GetLogger().LogWarning(ctx, "Database connection is no longer valid, reconnecting")
		m.discardLocked(ctx)
	}

	if err := m.connectLocked(ctx); err != nil {
		m.goOfflineLocked(ctx, err)
		return false
	}

	return true
}

func (m *ConnManager) getConnectionLocked(ctx context.Context) (*sql.Conn, error) {
	s := m.snap.Load()

	switch s.state {
	case dbx.StateOffline:
		return nil, nil
	case dbx.StateUninitialized:
		if !m.initializeLocked(ctx) {
			return nil, errorx.NewConnectionError(m.snap.Load().reason, "Database connection could not be established")
		}

		return m.snap.Load().conn, nil
	}

	if !m.health.Due(s.lastCheck) || m.probeLocked(ctx, s) {
		return m.snap.Load().conn, nil
	}

	logx.GetLogger().LogWarning(ctx, "Database connection is no longer valid, reconnecting")
	m.discardLocked(ctx)

	if err := m.connectLocked(ctx); err != nil {
		m.goOfflineLocked(ctx, err)
		return nil, nil
	}

	return m.snap.Load().conn, nil
}

// probeLocked validates the held connection and records the check time on success.
func (m *ConnManager) probeLocked(ctx context.Context, s *snapshot) bool {
	if err := m.health.Probe(ctx, s.conn); err != nil {
		logx.GetLogger().LogWarning(ctx, "Database connection validation failed", err)
		return false
	}

	m.publish(&snapshot{state: s.state, db: s.db, conn: s.conn, lastCheck: m.clock.Now()})

	return true
}

// connectLocked opens a new connection and publishes the Online state.
func (m *ConnManager) connectLocked(ctx context.Context) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	db, err := m.opener(ctx, m.cfg)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectionTimeout)
	defer cancel()

	conn, err := db.Conn(connectCtx)
	if err != nil {
		closeQuietly(ctx, db, nil)
		return fmt.Errorf("%w: %w", dbx.ErrConnectFailure, err)
	}

	if err := conn.PingContext(connectCtx); err != nil {
		closeQuietly(ctx, db, conn)
		return fmt.Errorf("%w: %w", dbx.ErrValidationFailure, err)
	}

	if m.afterConnect != nil {
		if err := m.afterConnect(connectCtx, conn); err != nil {
			closeQuietly(ctx, db, conn)
			return fmt.Errorf("%w: after connect: %w", dbx.ErrConnectFailure, err)
		}
	}

	m.publish(&snapshot{state: dbx.StateOnline, db: db, conn: conn, lastCheck: m.clock.Now()})

	logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Database connected successfully: driver=%s", m.dialect.Name))

	return nil
}

// discardLocked closes the held connection, if any. The published state is left to the caller.
func (m *ConnManager) discardLocked(ctx context.Context) {
	s := m.snap.Load()
	if s.db == nil && s.conn == nil {
		return
	}

	closeQuietly(ctx, s.db, s.conn)
	m.publish(&snapshot{state: s.state, reason: s.reason})
}

func (m *ConnManager) goOfflineLocked(ctx context.Context, reason error) {
	m.publish(&snapshot{state: dbx.StateOffline, reason: reason})
	logx.GetLogger().LogWarning(ctx, "Database unavailable, running in offline mode", reason)
}

func closeQuietly(ctx context.Context, db *sql.DB, conn *sql.Conn) {
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			logx.GetLogger().LogWarning(ctx, "Error closing database connection", err)
		}
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logx.GetLogger().LogWarning(ctx, "Error closing database", err)
		}
	}
}
