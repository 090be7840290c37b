package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/wheelhouse/internal/models"
	"github.com/openclaw/wheelhouse/internal/wheel"
)

func newRecommendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <symbol>",
		Short: "Recommend a wheel trade for a symbol",
		Long: `Recommend the next wheel leg for a symbol.

With --strategy csp (the default) the advisor proposes a cash-secured put
inside the configured put band. With --strategy cc it proposes a covered
call, which requires at least one round lot of the underlying in the
account.`,
		Example: `  wheel recommend AAPL
  wheel recommend AAPL --strategy cc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			strategyFlag, _ := cmd.Flags().GetString("strategy")
			strategy := models.Strategy(strings.ToLower(strategyFlag))
			if !strategy.Valid() {
				return fmt.Errorf("unknown strategy %q (want csp or cc)", strategyFlag)
			}

			rec, err := app.Engine.Recommend(ctx, symbol, strategy)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(rec)
			}
			output.Println(rec.Rationale)
			return nil
		},
	}

	cmd.Flags().StringP("strategy", "s", "csp", "strategy: csp or cc")

	return cmd
}

func newRollCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "roll <position-symbol> <candidate-symbol>",
		Short: "Analyze rolling a short option into a new contract",
		Long: `Analyze rolling an existing short option position into a candidate
contract. Both symbols use OSI format (e.g. AAPL260918P00150000). The
position must exist in the account and be short; the candidate must have
the same right and be listed on the chain. The output reports the net
credit or debit per share and the breakeven shift.`,
		Example: `  wheel roll AAPL260918P00100000 AAPL261016P00095000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			positionSymbol := strings.ToUpper(args[0])
			candidateSymbol := strings.ToUpper(args[1])

			existing, err := findOptionPosition(ctx, app, positionSymbol)
			if err != nil {
				return err
			}
			candidate, err := findChainContract(ctx, app, candidateSymbol)
			if err != nil {
				return err
			}

			plan, err := wheel.AnalyzeRollover(*existing, *candidate)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(plan)
			}

			direction := "credit"
			if !plan.IsCredit() {
				direction = "debit"
			}
			output.Printf("Roll %s -> %s\n", existing.Symbol, candidate.Symbol)
			output.Printf("  net %s: %.2f per share (%.2f per contract)\n",
				direction, math.Abs(plan.NetCredit), math.Abs(plan.NetCredit)*models.SharesPerContract)
			output.Printf("  breakeven shift: %+.2f\n", plan.BreakevenShift)
			return nil
		},
	}
}

func findOptionPosition(ctx context.Context, app *App, symbol string) (*models.Position, error) {
	positions, err := app.Portfolio.Positions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol && positions[i].Kind == models.KindOption {
			return &positions[i], nil
		}
	}
	return nil, fmt.Errorf("no option position %s in account", symbol)
}

// findChainContract resolves a candidate OSI symbol to a live chain entry,
// so the rollover math uses a current bid rather than a stale one.
func findChainContract(ctx context.Context, app *App, symbol string) (*models.OptionContract, error) {
	underlying, expiration, right, strike, err := models.ParseOSI(symbol)
	if err != nil {
		return nil, err
	}

	chain, err := app.Quotes.GetChain(ctx, underlying, expiration.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	for i := range chain.Contracts {
		c := &chain.Contracts[i]
		if c.Right == right && math.Abs(c.Strike-strike) < 1e-6 {
			return c, nil
		}
	}
	return nil, fmt.Errorf("contract %s not found on the %s chain", symbol, underlying)
}
