package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marcodd23/go-export-ledger/pkg/utilx/jsonx"
)

// connectionReport is the output of the check command.
type connectionReport struct {
	State           string     `json:"state"`
	Status          string     `json:"status"`
	Description     string     `json:"description"`
	Offline         bool       `json:"offline"`
	OfflineReason   string     `json:"offlineReason,omitempty"`
	LastHealthCheck *time.Time `json:"lastHealthCheck,omitempty"`
	Configuration   string     `json:"configuration"`
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Connect to the database and report the connection status",
		Long: `Initialize the database connection and print its status as JSON.

An unreachable database is not an error: the report shows the offline state and
the reason the connection failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			mgr, _ := a.newManager()
			defer mgr.Shutdown(ctx)

			mgr.Initialize(ctx)
			status := mgr.GetConnectionStatus(ctx)

			report := connectionReport{
				State:         mgr.State().String(),
				Status:        string(status),
				Description:   status.Description(),
				Offline:       mgr.IsOfflineMode(),
				Configuration: mgr.ConfigurationSummary(ctx),
			}

			if reason := mgr.OfflineReason(); reason != nil {
				report.OfflineReason = reason.Error()
			}

			if last := mgr.LastHealthCheck(); !last.IsZero() {
				report.LastHealthCheck = &last
			}

			return jsonx.WriteIndented(cmd.OutOrStdout(), report)
		},
	}
}
