package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcodd23/go-export-ledger/pkg/shipment"
	"github.com/marcodd23/go-export-ledger/pkg/utilx/jsonx"
)

// deliveryView is a delivery as printed by the CLI, with its display codes.
type deliveryView struct {
	Code       string `json:"deliveryCode"`
	ExportCode string `json:"exportCode"`
	shipment.Delivery
}

func newDeliveryView(d shipment.Delivery) deliveryView {
	return deliveryView{
		Code:       d.DeliveryCode(),
		ExportCode: d.DisplayExportID(),
		Delivery:   d,
	}
}

func newDeliveriesCmd(a *app) *cobra.Command {
	deliveriesCmd := &cobra.Command{
		Use:     "deliveries",
		Aliases: []string{"delivery"},
		Short:   "List and register deliveries",
	}

	deliveriesCmd.AddCommand(newDeliveriesListCmd(a), newDeliveriesAddCmd(a))

	return deliveriesCmd
}

func newDeliveriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all deliveries as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, mgr := a.openStore(ctx)
			defer mgr.Shutdown(ctx)

			deliveries, err := store.ListDeliveries(ctx)
			if err != nil {
				return err
			}

			views := make([]deliveryView, 0, len(deliveries))
			for _, d := range deliveries {
				views = append(views, newDeliveryView(d))
			}

			return jsonx.WriteIndented(cmd.OutOrStdout(), views)
		},
	}
}

func newDeliveriesAddCmd(a *app) *cobra.Command {
	var payload string

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a delivery",
		Long: `Register a delivery described as JSON, for example:

  exportctl deliveries add --json '{"exportationId":"EXP1042","carrierName":"Maersk","deliveryDate":"2024-05-20"}'

While the database is offline the delivery is not stored and a warning is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			delivery, err := jsonx.ParseJSONInto[shipment.Delivery]([]byte(payload))
			if err != nil {
				return err
			}

			store, mgr := a.openStore(ctx)
			defer mgr.Shutdown(ctx)

			if err := store.InsertDelivery(ctx, &delivery); err != nil {
				return err
			}

			if mgr.IsOfflineMode() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Database offline - delivery not stored")
				return nil
			}

			return jsonx.WriteIndented(cmd.OutOrStdout(), newDeliveryView(delivery))
		},
	}

	addCmd.Flags().StringVar(&payload, "json", "", "delivery as a JSON object")
	_ = addCmd.MarkFlagRequired("json")

	return addCmd
}
