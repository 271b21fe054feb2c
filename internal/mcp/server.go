// Package mcp exposes the chat archive to AI assistants over the Model
// Context Protocol. All tools are read-only.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/chatvault/internal/api"
)

// Tool name constants.
const (
	ToolSearchConversations = "search_conversations"
	ToolGetMessages         = "get_messages"
	ToolListConversations   = "list_conversations"
	ToolGetStats            = "get_stats"
	ToolGetSourceStats      = "get_source_stats"
	ToolGetActivity         = "get_activity"
)

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withOffset() mcp.ToolOption {
	return mcp.WithNumber("offset",
		mcp.Description("Number of results to skip for pagination (default 0)"),
	)
}

func withSource() mcp.ToolOption {
	return mcp.WithString("source",
		mcp.Description("Only conversations from this provider (e.g. 'claude', 'chatgpt')"),
	)
}

// Serve creates an MCP server with chat archive tools and serves over
// stdio. It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, st api.ArchiveStore) error {
	s := server.NewMCPServer(
		"chatvault",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{store: st}

	s.AddTool(searchConversationsTool(), h.searchConversations)
	s.AddTool(getMessagesTool(), h.getMessages)
	s.AddTool(listConversationsTool(), h.listConversations)
	s.AddTool(getStatsTool(), h.getStats)
	s.AddTool(getSourceStatsTool(), h.getSourceStats)
	s.AddTool(getActivityTool(), h.getActivity)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func searchConversationsTool() mcp.Tool {
	return mcp.NewTool(ToolSearchConversations,
		mcp.WithDescription("Search archived chat conversations by free text. Every word must match as a prefix; results are grouped by conversation with highlighted snippets."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query (e.g. 'salary bands')"),
		),
		withSource(),
		mcp.WithString("sort",
			mcp.Description("Result order"),
			mcp.Enum("relevance", "last_occurrence", "occurrences", "title_asc", "title_desc"),
		),
		withLimit("20"),
		withOffset(),
	)
}

func getMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessages,
		mcp.WithDescription("Get the full message transcript of one conversation by its ID, in chronological order."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation ID (from search_conversations or list_conversations)"),
		),
	)
}

func listConversationsTool() mcp.Tool {
	return mcp.NewTool(ToolListConversations,
		mcp.WithDescription("List archived conversations with message counts and last activity, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		withSource(),
		withLimit("50"),
		withOffset(),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get archive overview: conversation and message counts per provider plus overall totals."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getSourceStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetSourceStats,
		mcp.WithDescription("Get per-provider statistics: conversation count, message count, and last activity for each source."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getActivityTool() mcp.Tool {
	return mcp.NewTool(ToolGetActivity,
		mcp.WithDescription("Get per-day message counts for a trailing window of days, oldest day first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("days",
			mcp.Description("Window length in days (default 30, max 365)"),
		),
	)
}
