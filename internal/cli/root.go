// Package cli provides the command-line interface for the wheel advisor.
package cli

import (
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openclaw/wheelhouse/internal/config"
	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/market"
	"github.com/openclaw/wheelhouse/internal/orders"
	"github.com/openclaw/wheelhouse/internal/portfolio"
	"github.com/openclaw/wheelhouse/internal/quotes"
	"github.com/openclaw/wheelhouse/internal/wheel"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies shared across commands.
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Session   gateway.Session
	Quotes    *quotes.Adapter
	Engine    *wheel.Engine
	Portfolio *portfolio.Reporter
	Orders    *orders.Facade
}

// newApp wires the full dependency graph from a validated config. No
// network traffic happens here: the gateway session is lazy and the first
// request pays the connection cost.
func newApp(cfg *config.Config, logger *logrus.Logger) *App {
	client := gateway.ConnectWithTimeout(
		cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.ClientID, cfg.GatewayTimeout())
	session := gateway.NewCircuitBreakerSession(client)

	// Core packages log through the stdlib logger; route it into logrus
	// so all output shares one stream and level policy.
	coreLog := log.New(logger.WriterLevel(logrus.InfoLevel), "", 0)

	classifier := market.NewClassifier(session, coreLog)
	primary := quotes.NewGatewaySource(session)
	fallback := quotes.NewDelayedSource(cfg.Fallback.Endpoint, cfg.FallbackTimeout())
	adapter := quotes.NewAdapter(primary, fallback, classifier, coreLog)
	reporter := portfolio.NewReporter(session, coreLog)

	engine := wheel.NewEngine(adapter, reporter, wheel.Config{
		CSPBand:      bandFromSlice(cfg.Strategy.CSPBand, wheel.DefaultCSPBand),
		CCBand:       bandFromSlice(cfg.Strategy.CCBand, wheel.DefaultCCBand),
		StalenessMax: cfg.StalenessMax(),
	}, coreLog)

	facade := orders.NewFacade(session, cfg.IsReadonly(), coreLog)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Session:   session,
		Quotes:    adapter,
		Engine:    engine,
		Portfolio: reporter,
		Orders:    facade,
	}
}

func bandFromSlice(band []float64, fallback wheel.Band) wheel.Band {
	if len(band) != 2 {
		return fallback
	}
	b := wheel.Band{Low: band[0], High: band[1]}
	if !b.Valid() {
		return fallback
	}
	return b
}

// NewRootCmd creates the root command for the CLI. Dependencies are built
// in PersistentPreRunE so that --config is honored and help output never
// requires a config file.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: newLogger("info")}

	rootCmd := &cobra.Command{
		Use:   "wheel",
		Short: "Options wheel strategy advisor",
		Long: `Wheel is a decision-support CLI for the options wheel strategy.

It connects to a broker gateway for live data and order entry, falls back
to a delayed quote provider when live data is unavailable, and recommends
cash-secured puts or covered calls inside configured moneyness bands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg.Environment.LogLevel)
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logger.SetLevel(logrus.DebugLevel)
			}
			*app = *newApp(cfg, logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newRecommendCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newAccountCmd(app))
	rootCmd.AddCommand(newRollCmd(app))
	rootCmd.AddCommand(newOrderCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("wheel %s\n", Version)
		},
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
