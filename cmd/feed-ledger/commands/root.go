package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	dbm "github.com/tendermint/tm-db"

	"github.com/n0ko/message-feed/internal/node"
)

const envPrefix = "FEED_LEDGER"

const (
	flagHome        = "home"
	flagRPCAddr     = "rpc-addr"
	flagPublicURL   = "public-url"
	flagMetricsAddr = "metrics-addr"
	flagSlot        = "slot"
	flagLogLevel    = "log-level"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger()

// RootCmd is the root command of the ledger node
var RootCmd = &cobra.Command{
	Use:   "feed-ledger",
	Short: "Single-node ledger serving the message feed",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(viper.GetString(flagLogLevel))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger = logger.Level(level)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	defaults := node.DefaultConfig()

	RootCmd.PersistentFlags().String(flagHome, os.ExpandEnv("$HOME/.feed-ledger"), "directory for the ledger database")
	RootCmd.PersistentFlags().String(flagLogLevel, "info", "log level (trace, debug, info, warn, error)")
	RootCmd.PersistentFlags().Duration(flagSlot, defaults.SlotInterval, "block production interval")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// nodeConfig builds the node config from flags and environment
func nodeConfig() node.Config {
	cfg := node.DefaultConfig()
	if addr := viper.GetString(flagRPCAddr); addr != "" {
		cfg.RPCAddr = addr
	}
	cfg.PublicURL = viper.GetString(flagPublicURL)
	cfg.MetricsAddr = viper.GetString(flagMetricsAddr)
	if slot := viper.GetDuration(flagSlot); slot > 0 {
		cfg.SlotInterval = slot
	}
	return cfg
}

// openDB opens the ledger database under the home directory
func openDB() (dbm.DB, error) {
	dir := filepath.Join(viper.GetString(flagHome), "data")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := dbm.NewDB("ledger", dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database in %s: %w", dir, err)
	}
	return db, nil
}
