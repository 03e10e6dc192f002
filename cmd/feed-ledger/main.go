package main

import (
	"context"
	"os"

	"github.com/n0ko/message-feed/cmd/feed-ledger/commands"
)

func main() {
	rootCmd := commands.RootCmd
	rootCmd.AddCommand(
		commands.InitCmd,
		commands.NewStartCmd(),
		commands.VersionCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
