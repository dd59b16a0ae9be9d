package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcodd23/go-export-ledger/pkg/configx"
	"github.com/marcodd23/go-export-ledger/pkg/dbx"
	"github.com/marcodd23/go-export-ledger/pkg/dbx/sqldb"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
	"github.com/marcodd23/go-export-ledger/pkg/shipment"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	configPath string
	cfg        configx.BaseConfig
}

// NewRootCmd builds the exportctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "exportctl",
		Short: "Export ledger - exportations and deliveries with an offline-tolerant database",
		Long: `exportctl manages the exportation and delivery ledger.

The database connection is optional: when it cannot be reached the commands run in
offline mode, writes are skipped and the connection is restored in the background
by the watch command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "directory containing property.yaml")

	rootCmd.AddCommand(
		newCheckCmd(a),
		newSchemaCmd(a),
		newDeliveriesCmd(a),
		newWatchCmd(a),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) loadConfig() error {
	if err := configx.LoadConfigFromPathForEnv(a.configPath, &a.cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logx.SetupLoggerWithWriter(a.cfg, os.Stderr)

	return nil
}

// newManager builds a connection manager that creates the ledger schema on every
// new connection. The manager is not initialized.
func (a *app) newManager() (*sqldb.ConnManager, dbx.Dialect) {
	connCfg := a.cfg.GetDatabaseConfig().ConnConfig()
	dialect := dbx.DialectFor(connCfg.Driver)

	return sqldb.NewConnManager(connCfg, sqldb.WithAfterConnect(shipment.SchemaInitializer(dialect))), dialect
}

// openStore initializes a manager and returns the store on top of it.
// The manager may be offline.
func (a *app) openStore(ctx context.Context) (*shipment.Store, *sqldb.ConnManager) {
	mgr, dialect := a.newManager()
	mgr.Initialize(ctx)

	return shipment.NewStore(mgr, dialect), mgr
}
