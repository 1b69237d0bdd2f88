package tapscan

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taprootstats/tapscan/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tapscan",
	Short: "Scan a Bitcoin Core datadir for transactions mixing taproot and non-taproot inputs",
	Long: `tapscan reads the block index and undo data of an existing Bitcoin Core
datadir, classifies every spent input in a block height range as taproot
(P2TR) or not, and writes per-block statistics to a CSV file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.ScanConfig{
			DataDir:        viper.GetString("datadir"),
			Network:        viper.GetString("network"),
			Start:          viper.GetInt64("start"),
			End:            viper.GetInt64("end"),
			Output:         viper.GetString("output"),
			PostgresConn:   viper.GetString("postgres-conn"),
			MetricsAddr:    viper.GetString("metrics-addr"),
			MaxConcurrency: viper.GetUint("max-concurrency"),
			LogLevel:       viper.GetString("log-level"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, err := cfg.SlogLevel()
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		return runScan(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().String("datadir", "", "Bitcoin Core data directory (required)")
	rootCmd.Flags().String("network", "mainnet", "Network: mainnet, testnet, regtest or signet")
	rootCmd.Flags().Int64("start", 0, "Start block height (inclusive)")
	rootCmd.Flags().Int64("end", 0, "End block height (inclusive)")
	rootCmd.Flags().String("output", "block_stats.csv", "Output CSV file")
	rootCmd.Flags().String("postgres-conn", "", "Optional Postgres connection string to mirror results into")
	rootCmd.Flags().String("metrics-addr", "", "Optional listen address for Prometheus metrics, e.g. :2112")
	rootCmd.Flags().Uint("max-concurrency", uint(runtime.NumCPU()), "Maximum number of concurrent block workers")
	rootCmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")

	viper.SetEnvPrefix("tapscan")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with a signal-cancelled context and exits
// non-zero on any error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
