package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/textutil"
)

var (
	browseSource string
	browseSort   string
	browseLimit  int
	browseOffset int
	browseJSON   bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List archived conversations",
	Long: `List conversations in the archive, newest activity first.

Examples:
  chatvault browse
  chatvault browse --source chatgpt --limit 10
  chatvault browse --sort title_asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.BrowseConversations(cmd.Context(), store.SearchOptions{
			Source: browseSource,
			Sort:   store.SortOrder(browseSort),
			Limit:  browseLimit,
			Offset: browseOffset,
		})
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}

		if browseJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if res.TotalMatches == 0 {
			fmt.Println("Archive is empty.")
			return nil
		}

		fmt.Printf("%d conversations\n\n", res.TotalMatches)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tLAST ACTIVITY\tMSGS\tTITLE")
		for _, row := range res.Rows {
			when := "-"
			if row.LastOccurrence > 0 {
				when = time.UnixMilli(row.LastOccurrence).Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				row.ConversationID, row.Source, when,
				row.OccurrenceCount, textutil.TruncateRunes(row.Title, 50))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseSource, "source", "", "only conversations from this provider")
	browseCmd.Flags().StringVar(&browseSort, "sort", "", "sort order (last_occurrence, occurrences, title_asc, title_desc)")
	browseCmd.Flags().IntVar(&browseLimit, "limit", 0, "max results per page")
	browseCmd.Flags().IntVar(&browseOffset, "offset", 0, "results to skip")
	browseCmd.Flags().BoolVar(&browseJSON, "json", false, "output raw JSON")
}
