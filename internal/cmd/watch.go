package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/marcodd23/go-export-ledger/pkg/dbx/sqldb"
	"github.com/marcodd23/go-export-ledger/pkg/logx"
	"github.com/marcodd23/go-export-ledger/pkg/shutdown"
)

func newWatchCmd(a *app) *cobra.Command {
	var shutdownTimeout time.Duration

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the database connection alive until interrupted",
		Long: `Connect to the database and check the connection every reconnect interval,
restoring it when it is lost. Stops on SIGINT or SIGTERM and closes the connection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			mgr, _ := a.newManager()
			interval := mgr.Config().ReconnectInterval

			checker := sqldb.NewConnectionChecker(mgr, interval, clock.WallClock, func(online bool) {
				state := "offline"
				if online {
					state = "online"
				}

				fmt.Fprintf(out, "%s database %s\n", time.Now().Format(time.RFC3339), state)
			})

			logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Watching database connection every %s", interval))

			err := shutdown.RunUntilSignal(ctx, shutdownTimeout, checker.Run, func(timeoutCtx context.Context) {
				mgr.Shutdown(timeoutCtx)
			})
			// stopped by the caller's context
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}

			return err
		},
	}

	watchCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "time allowed to close the connection")

	return watchCmd
}
