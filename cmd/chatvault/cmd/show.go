package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:     "show <conversation-id>",
	Aliases: []string{"messages"},
	Short:   "Print a conversation transcript",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		conv, err := s.GetConversation(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		if conv == nil {
			return fmt.Errorf("conversation %q not found", id)
		}

		msgs, err := s.GetMessages(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get messages: %w", err)
		}

		if showJSON {
			conv.Messages = msgs
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(conv)
		}

		fmt.Printf("%s (%s, %d messages)\n\n", conv.Title, conv.Source, len(msgs))
		for _, m := range msgs {
			when := ""
			if m.CreatedAt > 0 {
				when = time.UnixMilli(m.CreatedAt).Format("2006-01-02 15:04")
			}
			fmt.Printf("[%s] %s\n%s\n\n", m.Sender, when, m.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output raw JSON")
}
