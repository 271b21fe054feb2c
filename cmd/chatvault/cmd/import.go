package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/model"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json> [file.json...]",
	Short: "Import conversation exports into the archive",
	Long: `Import one or more canonical-format JSON exports into the archive.

Each file holds an array of conversations with their messages, as
produced by the provider export converters. Importing the same file
twice is safe: conversations are replaced wholesale by id, so the
archive ends up in the same state.

Examples:
  chatvault import claude-export.json
  chatvault import exports/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		totalConvs, totalMsgs := 0, 0
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			convs, err := model.DecodeConversations(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			res, err := s.InsertConversations(cmd.Context(), convs)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			fmt.Printf("%s: %d conversations, %d messages\n",
				path, res.ConversationCount, res.MessageCount)
			totalConvs += res.ConversationCount
			totalMsgs += res.MessageCount
		}

		if len(args) > 1 {
			fmt.Printf("Total: %d conversations, %d messages\n", totalConvs, totalMsgs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
