package node

import (
	"fmt"
	"time"
)

// Config holds the node settings
type Config struct {
	// RPCAddr is the listen address of the JSON-RPC, config and websocket endpoints
	RPCAddr string
	// PublicURL is the RPC URL advertised in config.json. Derived from the
	// request host when empty.
	PublicURL string
	// MetricsAddr serves Prometheus metrics when set
	MetricsAddr string
	// SlotInterval is how often a block is produced
	SlotInterval time.Duration
	// MempoolSize bounds the number of pending transactions
	MempoolSize int
	// CORSAllowedOrigins for browser clients
	CORSAllowedOrigins []string
	// GenesisText is the text of the first message
	GenesisText string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		RPCAddr:            ":8081",
		SlotInterval:       400 * time.Millisecond,
		MempoolSize:        1024,
		CORSAllowedOrigins: []string{"*"},
		GenesisText:        "Welcome to the message feed",
	}
}

// Validate checks the config for obvious mistakes
func (c Config) Validate() error {
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc address is required")
	}
	if c.SlotInterval <= 0 {
		return fmt.Errorf("slot interval must be positive, got %s", c.SlotInterval)
	}
	if c.MempoolSize <= 0 {
		return fmt.Errorf("mempool size must be positive, got %d", c.MempoolSize)
	}
	if c.GenesisText == "" {
		return fmt.Errorf("genesis text is required")
	}
	return nil
}
