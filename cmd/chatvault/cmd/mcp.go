package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/chatvault/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to query the archive
using tools like search_conversations, get_messages, list_conversations,
get_stats, and get_activity.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "chatvault": {
        "command": "chatvault",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return mcpserver.Serve(cmd.Context(), s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
