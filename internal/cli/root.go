// Package cli provides the hkquant command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"HKQuant/internal/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Run executes the root command and exits non-zero on failure.
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var (
		cfgPath string
		debug   bool
	)

	rootCmd := &cobra.Command{
		Use:   "hkquant",
		Short: "HKQuant - Hong Kong equities research toolkit",
		Long: `HKQuant collects Hong Kong market data, computes indicators, backtests
and optimizes simple strategies, and serves the results through a terminal
UI, an HTTP dashboard, a Telegram bot and an MCP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ResolvePath(cfgPath))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			log, err := newLogger(debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg = cfg
			a.log = log
			a.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "configuration file path (default $HKQUANT_CONFIG or "+config.DefaultPath+")")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVarP(&a.outPath, "out", "o", "", "also write the result to this file (.json or .csv)")
	flags.BoolVar(&a.jsonOut, "json", false, "print JSON instead of the formatted view")

	rootCmd.AddCommand(
		newIndicatorsCmd(a),
		newBacktestCmd(a),
		newOptimizeCmd(a),
		newRiskCmd(a),
		newFundamentalsCmd(a),
		newAnalyzeCmd(a),
		newScrapeCmd(a),
		newSentimentCmd(a),
		newTasksCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newRunCmd(a),
		newBotCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// newLogger logs to stderr so stdout stays clean for --json output.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hkquant %s\n", Version)
		},
	}
}
