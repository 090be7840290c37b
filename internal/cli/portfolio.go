package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "List current account positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			positions, err := app.Portfolio.Positions(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}

			if len(positions) == 0 {
				output.Println("No open positions")
				return nil
			}
			output.Printf("%-22s %-7s %10s %12s %14s %12s\n",
				"SYMBOL", "KIND", "QTY", "AVG COST", "MARKET VALUE", "UNREAL P&L")
			for _, p := range positions {
				output.Printf("%-22s %-7s %10.0f %12.2f %14.2f %12.2f\n",
					p.Symbol, p.Kind, p.Quantity, p.AverageCost, p.MarketValue, p.UnrealizedPnL)
			}
			return nil
		},
	}
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			summary, err := app.Portfolio.AccountSummary(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}
			output.Println(summary.String())
			return nil
		},
	}
}
