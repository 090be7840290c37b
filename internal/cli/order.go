package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/wheelhouse/internal/models"
	"github.com/openclaw/wheelhouse/internal/orders"
)

func newOrderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <symbol>",
		Short: "Place a single-leg option order",
		Long: `Place a single-leg order for an option contract, identified by its OSI
symbol (e.g. AAPL260918P00150000).

The command refuses to submit anything while the gateway session is
configured read-only.`,
		Example: `  wheel order AAPL260918P00150000 --side sell --quantity 1 --type limit --limit 1.55
  wheel order AAPL260918C00200000 --side buy --quantity 2 --type market`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			if _, _, _, _, err := models.ParseOSI(symbol); err != nil {
				return err
			}

			side, _ := cmd.Flags().GetString("side")
			quantity, _ := cmd.Flags().GetInt("quantity")
			orderType, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetFloat64("limit")

			handle, err := app.Orders.Place(ctx, orders.Request{
				Contract:   models.OptionContract{Symbol: symbol},
				Side:       orders.Side(strings.ToLower(side)),
				Quantity:   quantity,
				Type:       orders.Type(strings.ToLower(orderType)),
				LimitPrice: limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(handle)
			}
			output.Printf("Order %d submitted: %s (tag %s)\n", handle.ID, handle.Status, handle.Tag)
			return nil
		},
	}

	cmd.Flags().String("side", "", "order side: buy or sell")
	cmd.Flags().Int("quantity", 1, "number of contracts")
	cmd.Flags().String("type", "limit", "order type: market or limit")
	cmd.Flags().Float64("limit", 0, "limit price per share")
	_ = cmd.MarkFlagRequired("side")

	return cmd
}
