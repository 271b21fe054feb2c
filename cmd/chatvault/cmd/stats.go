package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := cmd.Context()

		stats, err := s.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		fmt.Printf("Database: %s\n", cfg.DatabasePath())
		fmt.Printf("  Conversations: %d\n", stats.ConversationCount)
		fmt.Printf("  Messages:      %d\n", stats.MessageCount)
		fmt.Printf("  Indexed:       %d\n", stats.IndexedMessageCount)
		if stats.LatestMessageTimestamp > 0 {
			fmt.Printf("  Latest:        %s\n",
				time.UnixMilli(stats.LatestMessageTimestamp).Format("2006-01-02 15:04"))
		}

		sources, err := s.GetSourceStats(ctx)
		if err != nil {
			return fmt.Errorf("get source stats: %w", err)
		}
		if len(sources) > 0 {
			fmt.Println("\nBy source:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  SOURCE\tCONVERSATIONS\tMESSAGES\tLAST ACTIVITY")
			for _, src := range sources {
				when := "-"
				if src.LastActivityTimestamp > 0 {
					when = time.UnixMilli(src.LastActivityTimestamp).Format("2006-01-02")
				}
				fmt.Fprintf(w, "  %s\t%d\t%d\t%s\n",
					src.Source, src.ConversationCount, src.MessageCount, when)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		if statsDays > 0 {
			counts, err := s.GetActivityByDay(ctx, statsDays)
			if err != nil {
				return fmt.Errorf("get activity: %w", err)
			}
			var max int64
			for _, n := range counts {
				if n > max {
					max = n
				}
			}
			fmt.Printf("\nActivity (last %d days):\n", statsDays)
			day := time.Now().AddDate(0, 0, -(statsDays - 1))
			for i, n := range counts {
				bar := ""
				if max > 0 {
					bar = strings.Repeat("#", int(n*40/max))
				}
				fmt.Printf("  %s %5d %s\n",
					day.AddDate(0, 0, i).Format("01-02"), n, bar)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "also show per-day activity for the last N days")
}
