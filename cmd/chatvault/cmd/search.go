package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/textutil"
)

var (
	searchSource string
	searchSort   string
	searchLimit  int
	searchOffset int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the archive by free text",
	Long: `Search archived conversations by free text.

Every word in the query must match as a prefix somewhere in a message
(or its conversation title). Results are grouped by conversation,
with occurrence counts and highlighted snippets from the most recent
matching messages.

Examples:
  chatvault search salary
  chatvault search budget planning --source claude
  chatvault search deadline --sort occurrences --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queryStr := strings.Join(args, " ")

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Search(cmd.Context(), queryStr, store.SearchOptions{
			Source:         searchSource,
			Sort:           store.SortOrder(searchSort),
			Limit:          searchLimit,
			Offset:         searchOffset,
			HighlightStart: cfg.Search.HighlightStart,
			HighlightEnd:   cfg.Search.HighlightEnd,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if res.TotalMatches == 0 {
			fmt.Println("No matches.")
			return nil
		}

		fmt.Printf("%d conversations, %d occurrences\n\n",
			res.TotalMatches, res.TotalOccurrences)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, row := range res.Rows {
			when := "unknown"
			if row.LastOccurrence > 0 {
				when = time.UnixMilli(row.LastOccurrence).Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d hits\n",
				row.ConversationID, when,
				textutil.TruncateRunes(row.Title, 40), row.OccurrenceCount)
			for _, snip := range row.Snippets {
				fmt.Fprintf(w, "\t\t%s\t\n", textutil.FirstLine(snip))
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchSource, "source", "", "only conversations from this provider")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort order (relevance, last_occurrence, occurrences, title_asc, title_desc)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results per page")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output raw JSON")
}
