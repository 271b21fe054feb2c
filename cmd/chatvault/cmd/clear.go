package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all archived data",
	Long: `Delete every conversation and message from the archive.

The database file itself is kept, so the archive can be re-imported
immediately. Prompts for confirmation unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearForce {
			fmt.Printf("This permanently deletes all data in %s.\nType 'yes' to continue: ",
				cfg.DatabasePath())
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ClearAll(cmd.Context()); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
		fmt.Println("Archive cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "skip the confirmation prompt")
}
