package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wesm/chatvault/internal/model"
	"github.com/wesm/chatvault/internal/store"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// ConversationSummary represents a conversation in search and browse
// responses.
type ConversationSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	CreatedAt    int64    `json:"created_at"`
	LastActivity int64    `json:"last_activity"`
	Occurrences  int      `json:"occurrences,omitempty"`
	MatchedMsgs  int      `json:"matched_messages,omitempty"`
	FirstMatchID string   `json:"first_match_message_id,omitempty"`
	Snippets     []string `json:"snippets,omitempty"`
}

// SearchResponse represents search or browse results.
type SearchResponse struct {
	Query            string                `json:"query"`
	Total            int                   `json:"total"`
	TotalOccurrences int                   `json:"total_occurrences,omitempty"`
	Limit            int                   `json:"limit"`
	Offset           int                   `json:"offset"`
	Conversations    []ConversationSummary `json:"conversations"`
}

func summarize(rows []store.SearchRow) []ConversationSummary {
	out := make([]ConversationSummary, len(rows))
	for i, row := range rows {
		out[i] = ConversationSummary{
			ID:           row.ConversationID,
			Title:        row.Title,
			Source:       row.Source,
			CreatedAt:    row.CreatedAt,
			LastActivity: row.LastOccurrence,
			Occurrences:  row.OccurrenceCount,
			MatchedMsgs:  row.MessageMatchCount,
			FirstMatchID: row.FirstMatchMessageID,
			Snippets:     row.Snippets,
		}
	}
	return out
}

// searchOptsFromQuery parses the shared filter/pagination parameters.
func (s *Server) searchOptsFromQuery(r *http.Request) store.SearchOptions {
	q := r.URL.Query()
	opts := store.SearchOptions{
		Source:         q.Get("source"),
		Sort:           store.SortOrder(q.Get("sort")),
		HighlightStart: s.cfg.Search.HighlightStart,
		HighlightEnd:   s.cfg.Search.HighlightEnd,
	}
	opts.DateFrom, _ = strconv.ParseInt(q.Get("from"), 10, 64)
	opts.DateTo, _ = strconv.ParseInt(q.Get("to"), 10, 64)
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))
	if opts.Limit == 0 && s.cfg.Search.DefaultLimit > 0 {
		opts.Limit = s.cfg.Search.DefaultLimit
	}
	return opts
}

// handleSearch runs a full-text query over the archive.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	opts := s.searchOptsFromQuery(r)

	res, err := s.store.Search(r.Context(), query, opts)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:            query,
		Total:            res.TotalMatches,
		TotalOccurrences: res.TotalOccurrences,
		Limit:            opts.Limit,
		Offset:           opts.Offset,
		Conversations:    summarize(res.Rows),
	})
}

// handleBrowseConversations lists conversations without a text query.
func (s *Server) handleBrowseConversations(w http.ResponseWriter, r *http.Request) {
	opts := s.searchOptsFromQuery(r)

	res, err := s.store.BrowseConversations(r.Context(), opts)
	if err != nil {
		s.logger.Error("browse failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Total:         res.TotalMatches,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
		Conversations: summarize(res.Rows),
	})
}

// handleGetConversation returns one conversation header.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		s.logger.Error("get conversation failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve conversation")
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "not_found", "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleGetMessages returns a conversation's messages in order.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msgs, err := s.store.GetMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("get messages failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": id,
		"count":           len(msgs),
		"messages":        msgs,
	})
}

// handleStats returns archive statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSourceStats returns per-source statistics.
func (s *Server) handleSourceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetSourceStats(r.Context())
	if err != nil {
		s.logger.Error("failed to get source stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve source statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": stats})
}

// handleActivity returns per-day message counts for a trailing window.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 || days > 365 {
		days = 30
	}

	counts, err := s.store.GetActivityByDay(r.Context(), days)
	if err != nil {
		s.logger.Error("failed to get activity", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve activity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"counts": counts,
	})
}

// handleImport ingests a canonical-format conversation batch.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	convs, err := model.DecodeConversations(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	res, err := s.store.InsertConversations(r.Context(), convs)
	if err != nil {
		s.logger.Error("import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Import failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": res.ConversationCount,
		"messages":      res.MessageCount,
	})
}

// handleClearAll wipes the archive. Requires confirm=true so a stray
// DELETE cannot destroy data.
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "confirmation_required",
			"Pass confirm=true to delete all archive data")
		return
	}

	if err := s.store.ClearAll(r.Context()); err != nil {
		s.logger.Error("clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
