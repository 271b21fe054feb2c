package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/chatvault/internal/api"
	"github.com/wesm/chatvault/internal/store"
)

const maxLimit = 100

type handlers struct {
	store api.ArchiveStore
}

func (h *handlers) searchConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	queryStr, _ := args["query"].(string)
	if queryStr == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	source, _ := args["source"].(string)
	sortStr, _ := args["sort"].(string)
	opts := store.SearchOptions{
		Source: source,
		Sort:   store.SortOrder(sortStr),
		Limit:  limitArg(args, "limit", 20),
		Offset: offsetArg(args, "offset"),
	}

	res, err := h.store.Search(ctx, queryStr, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(res)
}

func (h *handlers) getMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	conversationID, _ := args["conversation_id"].(string)
	if conversationID == "" {
		return mcp.NewToolResultError("conversation_id parameter is required"), nil
	}

	conv, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	if conv == nil {
		return mcp.NewToolResultError(fmt.Sprintf("conversation %q not found", conversationID)), nil
	}

	msgs, err := h.store.GetMessages(ctx, conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load messages: %v", err)), nil
	}

	conv.Messages = msgs
	return jsonResult(conv)
}

func (h *handlers) listConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	source, _ := args["source"].(string)
	opts := store.SearchOptions{
		Source: source,
		Limit:  limitArg(args, "limit", 50),
		Offset: offsetArg(args, "offset"),
	}

	res, err := h.store.BrowseConversations(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}

	return jsonResult(res)
}

func (h *handlers) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.store.GetStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	sources, err := h.store.GetSourceStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source stats failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"totals":  stats,
		"sources": sources,
	})
}

func (h *handlers) getSourceStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := h.store.GetSourceStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source stats failed: %v", err)), nil
	}
	return jsonResult(sources)
}

func (h *handlers) getActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	days := 30
	if v, ok := args["days"].(float64); ok && !math.IsNaN(v) {
		days = int(v)
	}
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}

	counts, err := h.store.GetActivityByDay(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("activity failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"days":   days,
		"counts": counts,
	})
}

// offsetArg extracts a pagination offset: floored at 0 but never capped,
// so deep pages stay reachable. Limits and offsets clamp differently.
func offsetArg(args map[string]any, key string) int {
	v, ok := args[key].(float64)
	if !ok || math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
