package sqldb_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/dbx/sqldb"
	"github.com/marcodd23/go-export-ledger/pkg/errorx"
)

func TestInitialize_Success(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		return nil
	})

	assert.Equal(t, dbx.StateUninitialized, mgr.State())
	assert.Equal(t, dbx.StatusNotInitialized, mgr.GetConnectionStatus(ctx))

	require.True(t, mgr.Initialize(ctx))
	assert.Equal(t, dbx.StateOnline, mgr.State())
	assert.False(t, mgr.IsOfflineMode())
	assert.Equal(t, clk.Now(), mgr.LastHealthCheck())
	assert.Equal(t, dbx.StatusOnline, mgr.GetConnectionStatus(ctx))
	assert.NoError(t, mgr.OfflineReason())

	// already online and within the interval: no new connection, no probe
	require.True(t, mgr.Initialize(ctx))
	assert.Equal(t, 1, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestInitialize_ConnectFailureGoesOffline(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return errRefused
	})

	assert.False(t, mgr.Initialize(ctx))
	assert.True(t, mgr.IsOfflineMode())
	assert.Equal(t, dbx.StatusOffline, mgr.GetConnectionStatus(ctx))
	assert.ErrorIs(t, mgr.OfflineReason(), dbx.ErrConnectFailure)

	conn, err := mgr.GetConnection(ctx)
	assert.NoError(t, err)
	assert.Nil(t, conn)
}

func TestInitialize_ValidationFailureGoesOffline(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing().WillReturnError(errors.New("server has gone away"))
		mock.ExpectClose()
		return nil
	})

	assert.False(t, mgr.Initialize(ctx))
	assert.True(t, mgr.IsOfflineMode())
	assert.ErrorIs(t, mgr.OfflineReason(), dbx.ErrValidationFailure)
	opener.expectationsWereMet(t)
}

func TestInitialize_DriverMissing(t *testing.T) {
	ctx := context.Background()
	mgr := sqldb.NewConnManager(dbx.ConnConfig{
		Driver: "oracle.jdbc.OracleDriver",
		URL:    "jdbc:oracle:thin:@localhost:1521:xe",
	})

	assert.False(t, mgr.Initialize(ctx))
	assert.True(t, mgr.IsOfflineMode())
	assert.ErrorIs(t, mgr.OfflineReason(), dbx.ErrDriverMissing)
}

func TestInitialize_AfterConnectFailure(t *testing.T) {
	ctx := context.Background()
	hookErr := errors.New("schema init failed")

	opener := newMockOpener(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		mock.ExpectClose()
		return nil
	})
	mgr := sqldb.NewConnManager(mockConfig(),
		sqldb.WithOpener(opener.open),
		sqldb.WithAfterConnect(func(context.Context, *sql.Conn) error { return hookErr }))

	assert.False(t, mgr.Initialize(ctx))
	assert.ErrorIs(t, mgr.OfflineReason(), hookErr)
	assert.ErrorIs(t, mgr.OfflineReason(), dbx.ErrConnectFailure)
	opener.expectationsWereMet(t)
}

func TestGetConnection_LazyInitialization(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		return nil
	})

	conn, err := mgr.GetConnection(ctx)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, mgr.IsConnectionManaged(conn))
	assert.Equal(t, dbx.StateOnline, mgr.State())
	opener.expectationsWereMet(t)
}

func TestGetConnection_LazyInitializationFailure(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return errRefused
	})

	conn, err := mgr.GetConnection(ctx)
	assert.Nil(t, conn)

	var connErr *errorx.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, dbx.ErrConnectFailure)
	assert.True(t, mgr.IsOfflineMode())

	// once offline, callers get no handle and no error
	conn, err = mgr.GetConnection(ctx)
	assert.NoError(t, err)
	assert.Nil(t, conn)
}

func TestGetConnection_NoProbeWithinInterval(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		// the connect validation is the only ping allowed
		mock.ExpectPing()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	first, err := mgr.GetConnection(ctx)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		clk.Advance(testInterval / 100)

		conn, err := mgr.GetConnection(ctx)
		require.NoError(t, err)
		require.Same(t, first, conn)
	}

	assert.Equal(t, 1, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestGetConnection_ProbeWhenDue(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		mock.ExpectPing()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	first, err := mgr.GetConnection(ctx)
	require.NoError(t, err)

	clk.Advance(testInterval)

	conn, err := mgr.GetConnection(ctx)
	require.NoError(t, err)
	assert.Same(t, first, conn)
	assert.Equal(t, clk.Now(), mgr.LastHealthCheck())
	assert.Equal(t, 1, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestGetConnection_ConcurrentCallersProbeOnce(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		mock.ExpectPing()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	clk.Advance(testInterval + time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := mgr.GetConnection(ctx)
			assert.NoError(t, err)
			assert.NotNil(t, conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestGetConnection_ProbeFailureReconnects(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		switch attempt {
		case 0:
			mock.ExpectPing()
			mock.ExpectPing().WillReturnError(errors.New("broken pipe"))
			mock.ExpectClose()
		default:
			mock.ExpectPing()
		}
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	stale, err := mgr.GetConnection(ctx)
	require.NoError(t, err)

	clk.Advance(testInterval)

	fresh, err := mgr.GetConnection(ctx)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.NotSame(t, stale, fresh)
	assert.False(t, mgr.IsConnectionManaged(stale))
	assert.True(t, mgr.IsConnectionManaged(fresh))
	assert.Equal(t, 2, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestGetConnection_ProbeAndReconnectFailureGoesOffline(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		if attempt > 0 {
			return errRefused
		}

		mock.ExpectPing()
		mock.ExpectPing().WillReturnError(errors.New("broken pipe"))
		mock.ExpectClose()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	clk.Advance(testInterval)

	conn, err := mgr.GetConnection(ctx)
	assert.NoError(t, err)
	assert.Nil(t, conn)
	assert.True(t, mgr.IsOfflineMode())
	assert.Equal(t, dbx.StatusOffline, mgr.GetConnectionStatus(ctx))
	opener.expectationsWereMet(t)
}

func TestInitialize_StaleConnectionIsReplaced(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		if attempt == 0 {
			mock.ExpectPing().WillReturnError(errors.New("connection reset"))
			mock.ExpectClose()
		}
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	clk.Advance(2 * testInterval)

	require.True(t, mgr.Initialize(ctx))
	assert.Equal(t, 2, opener.attempts())
	assert.Equal(t, dbx.StateOnline, mgr.State())
	opener.expectationsWereMet(t)
}

func TestGetConnectionStatus_Unhealthy(t *testing.T) {
	ctx := context.Background()
	mgr, opener, clk := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		mock.ExpectPing().WillReturnError(errors.New("timeout"))
		mock.ExpectPing()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	clk.Advance(testInterval)

	// status does not replace the connection
	assert.Equal(t, dbx.StatusUnhealthy, mgr.GetConnectionStatus(ctx))
	assert.Equal(t, dbx.StateOnline, mgr.State())

	assert.Equal(t, dbx.StatusOnline, mgr.GetConnectionStatus(ctx))
	assert.Equal(t, 1, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestTryReconnect_FromOffline(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		if attempt == 0 {
			return errRefused
		}

		mock.ExpectPing()
		return nil
	})

	require.False(t, mgr.Initialize(ctx))
	require.True(t, mgr.IsOfflineMode())

	require.True(t, mgr.TryReconnect(ctx))
	assert.False(t, mgr.IsOfflineMode())
	assert.NoError(t, mgr.OfflineReason())
	assert.Equal(t, 2, opener.attempts())
	opener.expectationsWereMet(t)
}

func TestTryReconnect_DiscardsHealthyConnection(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		if attempt == 0 {
			mock.ExpectClose()
		}
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	before, err := mgr.GetConnection(ctx)
	require.NoError(t, err)

	require.True(t, mgr.TryReconnect(ctx))

	after, err := mgr.GetConnection(ctx)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	opener.expectationsWereMet(t)
}

func TestTryReconnect_FailureStaysOffline(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return errRefused
	})

	require.False(t, mgr.Initialize(ctx))

	for attempt := 1; attempt <= 2; attempt++ {
		assert.False(t, mgr.TryReconnect(ctx), "attempt %d", attempt)
		assert.True(t, mgr.IsOfflineMode(), "attempt %d", attempt)

		conn, err := mgr.GetConnection(ctx)
		assert.NoError(t, err, "attempt %d", attempt)
		assert.Nil(t, conn, "attempt %d", attempt)
		assert.True(t, mgr.LastHealthCheck().IsZero(), "attempt %d", attempt)
	}
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		mock.ExpectClose()
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	conn, err := mgr.GetConnection(ctx)
	require.NoError(t, err)

	mgr.Shutdown(ctx)
	mgr.Shutdown(ctx)

	assert.True(t, mgr.IsOfflineMode())
	assert.True(t, mgr.LastHealthCheck().IsZero())
	assert.False(t, mgr.IsConnectionManaged(conn))

	conn, err = mgr.GetConnection(ctx)
	assert.NoError(t, err)
	assert.Nil(t, conn)
	opener.expectationsWereMet(t)
}

func TestShutdown_FromUninitialized(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return nil
	})

	mgr.Shutdown(ctx)

	assert.True(t, mgr.IsOfflineMode())
	conn, err := mgr.GetConnection(ctx)
	assert.NoError(t, err)
	assert.Nil(t, conn)
	assert.Zero(t, opener.attempts())
}

func TestSetOfflineMode(t *testing.T) {
	ctx := context.Background()
	mgr, opener, _ := newMockManager(t, func(attempt int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		if attempt == 0 {
			mock.ExpectClose()
		}
		return nil
	})

	require.True(t, mgr.Initialize(ctx))
	require.True(t, mgr.IsConnected(ctx))

	require.True(t, mgr.SetOfflineMode(ctx, true))
	assert.True(t, mgr.IsOfflineMode())
	assert.False(t, mgr.IsConnected(ctx))
	assert.Error(t, mgr.OfflineReason())

	require.True(t, mgr.SetOfflineMode(ctx, false))
	assert.True(t, mgr.IsConnected(ctx))
	opener.expectationsWereMet(t)
}

func TestIsConnectionManaged(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		return nil
	})

	assert.False(t, mgr.IsConnectionManaged(nil))

	require.True(t, mgr.Initialize(ctx))
	managed, err := mgr.GetConnection(ctx)
	require.NoError(t, err)
	assert.True(t, mgr.IsConnectionManaged(managed))

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adHoc, err := db.Conn(ctx)
	require.NoError(t, err)
	defer adHoc.Close()

	assert.False(t, mgr.IsConnectionManaged(adHoc))
}

func TestAcquire_SerializesUse(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, mock sqlmock.Sqlmock) error {
		mock.ExpectPing()
		return nil
	})
	require.True(t, mgr.Initialize(ctx))

	conn, release, err := mgr.Acquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, conn)

	acquired := make(chan struct{})
	go func() {
		_, release2, err := mgr.Acquire(ctx)
		assert.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire must wait for release")
	case <-time.After(50 * time.Millisecond):
	}

	// lock-free reads stay available while the connection is held
	assert.False(t, mgr.IsOfflineMode())
	assert.True(t, mgr.IsConnectionManaged(conn))

	release()
	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire did not proceed after release")
	}
}

func TestAcquire_Offline(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return errRefused
	})
	require.False(t, mgr.Initialize(ctx))

	conn, release, err := mgr.Acquire(ctx)
	assert.Nil(t, conn)
	require.NotNil(t, release)
	assert.ErrorIs(t, err, dbx.ErrOffline)
	release()
}

func TestConfigurationSummary(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newMockManager(t, func(_ int, _ sqlmock.Sqlmock) error {
		return errRefused
	})
	require.False(t, mgr.Initialize(ctx))

	summary := mgr.ConfigurationSummary(ctx)
	assert.Contains(t, summary, "Driver: com.mysql.cj.jdbc.Driver")
	assert.Contains(t, summary, "Password: ******")
	assert.NotContains(t, summary, "s3cret")
	assert.Contains(t, summary, "Offline Mode: true")
	assert.Contains(t, summary, dbx.StatusOffline.Description())

	assert.Equal(t, dbx.DriverMySQL, mgr.Dialect().Name)
	assert.Equal(t, dbx.DefaultSocketTimeout, mgr.Config().SocketTimeout)
}
