package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/marcodd23/go-export-ledger/pkg/dbx"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the ledger tables if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, mgr := a.openStore(ctx)
			defer mgr.Shutdown(ctx)

			if mgr.IsOfflineMode() {
				return errors.Wrap(dbx.ErrOffline, "schema not created")
			}

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready")

			return nil
		},
	}
}
