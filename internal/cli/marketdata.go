package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/wheelhouse/internal/models"
)

// commandTimeout bounds a single CLI invocation end to end, including the
// market clock probe and a possible fallback retry.
const commandTimeout = 45 * time.Second

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price <symbol>",
		Short: "Look up the current price for a symbol",
		Long: `Fetch the current price for a symbol.

The live gateway feed is preferred; when the market is closed a frozen
snapshot is used, and when neither is available the delayed fallback
provider answers. The source tag on the output says which one served.`,
		Example: `  wheel price AAPL
  wheel price SPY --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			quote, err := app.Quotes.GetPrice(ctx, symbol)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(quote)
			}
			output.Printf("%s  %.2f  (bid %.2f / ask %.2f)  [%s]\n",
				quote.Symbol, quote.Price, quote.Bid, quote.Ask, quote.Source)
			return nil
		},
	}
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Fetch an option chain for a symbol",
		Example: `  wheel chain AAPL
  wheel chain AAPL --expiration 2026-09-18`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			expiration, _ := cmd.Flags().GetString("expiration")
			right, _ := cmd.Flags().GetString("right")

			chain, err := app.Quotes.GetChain(ctx, symbol, expiration)
			if err != nil {
				return err
			}

			contracts := chain.Contracts
			if right != "" {
				r := models.OptionRight(strings.ToLower(right))
				contracts = chain.ByRight(r)
			}

			if output.IsJSON() {
				return output.JSON(struct {
					*models.OptionChain
					Contracts []models.OptionContract `json:"contracts"`
				}{chain, contracts})
			}

			output.Printf("%s @ %.2f, expiring %s  [%s]\n",
				chain.Underlying, chain.UnderlyingPrice,
				chain.Expiration.Format("2006-01-02"), chain.Source)
			for _, c := range contracts {
				output.Printf("  %-4s %8.2f  bid %6.2f  ask %6.2f  otm %5.1f%%\n",
					c.Right, c.Strike, c.Bid, c.Ask,
					c.OTMPercent(chain.UnderlyingPrice)*100)
			}
			return nil
		},
	}

	cmd.Flags().StringP("expiration", "e", "", "expiration date (YYYY-MM-DD, default nearest)")
	cmd.Flags().StringP("right", "r", "", "filter by right: put or call")

	return cmd
}
