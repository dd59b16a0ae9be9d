package sqldb_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/dbx/sqldb"
)

const testInterval = 30 * time.Second

var errRefused = fmt.Errorf("%w: dial tcp 127.0.0.1:3308: connect: connection refused", dbx.ErrConnectFailure)

// mockOpener hands out a fresh sqlmock database per connection attempt. setup programs the
// expectations of attempt n (0-based); returning an error from setup fails that attempt.
type mockOpener struct {
	t     *testing.T
	setup func(attempt int, mock sqlmock.Sqlmock) error

	mu    sync.Mutex
	mocks []sqlmock.Sqlmock
	calls int
}

func newMockOpener(t *testing.T, setup func(attempt int, mock sqlmock.Sqlmock) error) *mockOpener {
	return &mockOpener{t: t, setup: setup}
}

func (o *mockOpener) open(_ context.Context, _ dbx.ConnConfig) (*sql.DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempt := o.calls
	o.calls++

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(o.t, err)

	if err := o.setup(attempt, mock); err != nil {
		_ = db.Close()
		return nil, err
	}

	o.mocks = append(o.mocks, mock)

	return db, nil
}

func (o *mockOpener) attempts() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.calls
}

func (o *mockOpener) expectationsWereMet(t *testing.T) {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()

	for i, mock := range o.mocks {
		require.NoError(t, mock.ExpectationsWereMet(), "mock of attempt %d", i)
	}
}

func mockConfig() dbx.ConnConfig {
	return dbx.ConnConfig{
		Driver:              "com.mysql.cj.jdbc.Driver",
		URL:                 "jdbc:mysql://localhost:3308/exportation_panelera",
		Username:            "root",
		Password:            "s3cret",
		ConnectionTimeout:   time.Second,
		HealthCheckInterval: testInterval,
		ValidationTimeout:   time.Second,
	}
}

func newMockManager(t *testing.T, setup func(attempt int, mock sqlmock.Sqlmock) error) (*sqldb.ConnManager, *mockOpener, *testclock.Clock) {
	t.Helper()

	clk := testclock.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	opener := newMockOpener(t, setup)
	mgr := sqldb.NewConnManager(mockConfig(), sqldb.WithClock(clk), sqldb.WithOpener(opener.open))

	return mgr, opener, clk
}

// sqliteConfig points at a fresh database file in the test temp dir.
func sqliteConfig(t *testing.T) dbx.ConnConfig {
	t.Helper()

	return dbx.ConnConfig{
		Driver:              "org.sqlite.JDBC",
		URL:                 "jdbc:sqlite:" + filepath.Join(t.TempDir(), "ledger.db"),
		ConnectionTimeout:   5 * time.Second,
		SocketTimeout:       5 * time.Second,
		HealthCheckInterval: time.Minute,
	}
}

func newSQLiteManager(t *testing.T, opts ...sqldb.Option) *sqldb.ConnManager {
	t.Helper()

	mgr := sqldb.NewConnManager(sqliteConfig(t), opts...)
	require.True(t, mgr.Initialize(context.Background()))
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })

	_, err := sqldb.Exec(context.Background(), mgr,
		"CREATE TABLE deliveries (id INTEGER PRIMARY KEY AUTOINCREMENT, delivery_code TEXT NOT NULL UNIQUE, weight REAL)")
	require.NoError(t, err)

	return mgr
}

func countRows(t *testing.T, mgr *sqldb.ConnManager) int {
	t.Helper()

	counts, err := sqldb.QueryAndScan(context.Background(), mgr, func(rows *sql.Rows) (int, error) {
		var n int
		err := rows.Scan(&n)
		return n, err
	}, "SELECT COUNT(*) FROM deliveries")
	require.NoError(t, err)
	require.Len(t, counts, 1)

	return counts[0]
}

func insertDelivery(code string) dbx.Operation {
	return dbx.OperationFunc(func(ctx context.Context, q dbx.Querier) error {
		_, err := q.ExecContext(ctx, "INSERT INTO deliveries (delivery_code, weight) VALUES (?, ?)", code, 10.5)
		return err
	})
}
