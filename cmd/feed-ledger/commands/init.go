package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n0ko/message-feed/internal/node"
)

// InitCmd writes the genesis block if the database is empty
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the ledger database with the first message",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := node.New(nodeConfig(), db, logger, nil)
		if err != nil {
			return err
		}

		logger.Info().Str("first_message", n.FirstMessage().String()).Msg("ledger initialized")
		fmt.Println(n.FirstMessage())
		return nil
	},
}
