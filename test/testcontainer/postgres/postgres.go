package postgres

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
	"github.com/marcodd23/go-export-ledger/test"
)

const (
	postgresContainerImage = "docker.io/postgres:16-alpine"
	postgresContainerPort  = "5432/tcp"

	MainDbName     = "exports"
	MainDbUser     = "postgres"
	MainDbPassword = "password"
)

const TestSnapshotId = "test-snapshot"

// PostgresContainer represents the postgres Container type used in the module.
type PostgresContainer struct {
	Container  *postgres.PostgresContainer
	MappedPort nat.Port
	Host       string
	DbName     string
	DbUser     string
	DbPassword string
}

// StartPostgresContainer starts an empty postgres database and snapshots it so that tests
// can restore a clean state with RestoreSnapshot.
func StartPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()
	test.ConfigTestRootPath()

	pg, err := postgres.Run(ctx,
		postgresContainerImage,
		postgres.WithDatabase(MainDbName),
		postgres.WithUsername(MainDbUser),
		postgres.WithPassword(MainDbPassword),
		postgres.WithSQLDriver("pgx"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)

	require.NoError(t, err)
	require.NotNil(t, pg)

	mappedPort, err := pg.MappedPort(ctx, postgresContainerPort)
	require.NoError(t, err)

	host, err := pg.Host(ctx)
	require.NoError(t, err)

	log.Printf("Postgres running at %s:%s", host, mappedPort.Port())

	err = pg.Snapshot(ctx, postgres.WithSnapshotName(TestSnapshotId))
	require.NoError(t, err)

	return &PostgresContainer{
		Container:  pg,
		MappedPort: mappedPort,
		Host:       host,
		DbName:     MainDbName,
		DbUser:     MainDbUser,
		DbPassword: MainDbPassword,
	}
}

// ConnConfig returns the connection settings of the container, expressed as a JDBC url the
// way deployments configure it.
func (c *PostgresContainer) ConnConfig() dbx.ConnConfig {
	return dbx.ConnConfig{
		Driver:              "org.postgresql.Driver",
		URL:                 fmt.Sprintf("jdbc:postgresql://%s:%s/%s?sslmode=disable", c.Host, c.MappedPort.Port(), c.DbName),
		Username:            c.DbUser,
		Password:            c.DbPassword,
		ConnectionTimeout:   5 * time.Second,
		SocketTimeout:       10 * time.Second,
		HealthCheckInterval: time.Minute,
	}.WithDefaults()
}

// RestoreSnapshot resets the database to the state it had when the container started.
// Connections to the database must be closed first.
func (c *PostgresContainer) RestoreSnapshot(ctx context.Context, t *testing.T) {
	t.Helper()

	require.NoError(t, c.Container.Restore(ctx, postgres.WithSnapshotName(TestSnapshotId)))
}

func (c *PostgresContainer) StopContainer(ctx context.Context, t *testing.T) error {
	logx.GetLogger().LogInfo(ctx, "Terminating the Container ....")

	timeout := time.Second * 3

	err := c.Container.Stop(ctx, &timeout)
	if err != nil {
		require.NoError(t, err, fmt.Sprintf("error stopping the Container %v", err))
		return err
	}

	return nil
}
