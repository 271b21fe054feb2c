package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initdbCmd = &cobra.Command{
	Use:     "initdb",
	Aliases: []string{"init"},
	Short:   "Create or upgrade the archive database",
	Long: `Create the archive database if it does not exist, or bring an
existing one up to the current schema.

Running this is optional: every command initializes the schema on
startup. It exists to verify the database independently, and to
surface schema problems (like a SQLite build without FTS5) early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		fmt.Printf("Database ready: %s (%d conversations, %d messages)\n",
			cfg.DatabasePath(), stats.ConversationCount, stats.MessageCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
