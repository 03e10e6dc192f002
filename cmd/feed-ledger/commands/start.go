package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/n0ko/message-feed/internal/node"
)

// NewStartCmd returns the command that runs the node
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the ledger node",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := nodeConfig()
			var metrics *node.Metrics
			if cfg.MetricsAddr != "" {
				metrics = node.PrometheusMetrics("feed_ledger")
			}

			n, err := node.New(cfg, db, logger, metrics)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := n.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("node stopped")
				return err
			}
			logger.Info().Msg("node stopped")
			return nil
		},
	}

	defaults := node.DefaultConfig()
	cmd.Flags().String(flagRPCAddr, defaults.RPCAddr, "listen address for JSON-RPC, config.json and websocket")
	cmd.Flags().String(flagPublicURL, "", "RPC URL advertised in config.json (derived from the request when empty)")
	cmd.Flags().String(flagMetricsAddr, "", "listen address for Prometheus metrics (disabled when empty)")
	return cmd
}
