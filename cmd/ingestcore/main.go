// Command ingestcore runs the market-intelligence ingestion core: the
// tiered scheduler, the orchestrator, and the durable sink, wired
// together from YAML configuration and environment-resolved secrets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	ilog "github.com/marketcore/ingestcore/internal/observability/log"
)

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "ingestcore",
		Short: "Market-intelligence ingestion and orchestration core",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ilog.Init(logLevel)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "config/ingestcore.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(serveCmd(), schedulerCmd(), registryCmd(), cacheCmd(), sinkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// notifyContext returns a context canceled on SIGINT/SIGTERM, used by
// every long-running subcommand for graceful shutdown.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(err error) {
	log.Fatal().Err(err).Msg("ingestcore: fatal error")
}
