package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/wesm/chatvault/internal/config"
	"github.com/wesm/chatvault/internal/model"
	"github.com/wesm/chatvault/internal/store"
)

// testLogger returns a logger for tests that discards all but errors.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockStore implements ArchiveStore for tests.
type mockStore struct {
	searchResult *store.SearchResult
	conversation *model.Conversation
	messages     []model.Message
	stats        *store.Stats
	sourceStats  []store.SourceStats
	activity     []int64
	importResult store.ImportResult

	gotQuery string
	gotOpts  store.SearchOptions
	cleared  bool
	imported []model.Conversation
}

func (m *mockStore) Search(ctx context.Context, query string, opts store.SearchOptions) (*store.SearchResult, error) {
	m.gotQuery = query
	m.gotOpts = opts
	if m.searchResult == nil {
		return &store.SearchResult{Rows: []store.SearchRow{}}, nil
	}
	return m.searchResult, nil
}

func (m *mockStore) BrowseConversations(ctx context.Context, opts store.SearchOptions) (*store.SearchResult, error) {
	m.gotOpts = opts
	if m.searchResult == nil {
		return &store.SearchResult{Rows: []store.SearchRow{}}, nil
	}
	return m.searchResult, nil
}

func (m *mockStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return m.conversation, nil
}

func (m *mockStore) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	return m.messages, nil
}

func (m *mockStore) GetStats(ctx context.Context) (*store.Stats, error) {
	if m.stats == nil {
		return &store.Stats{}, nil
	}
	return m.stats, nil
}

func (m *mockStore) GetSourceStats(ctx context.Context) ([]store.SourceStats, error) {
	return m.sourceStats, nil
}

func (m *mockStore) GetActivityByDay(ctx context.Context, days int) ([]int64, error) {
	return m.activity, nil
}

func (m *mockStore) InsertConversations(ctx context.Context, convs []model.Conversation) (store.ImportResult, error) {
	m.imported = convs
	return m.importResult, nil
}

func (m *mockStore) ClearAll(ctx context.Context) error {
	m.cleared = true
	return nil
}

func newTestServer(apiKey string, st ArchiveStore) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{APIPort: 8080, APIKey: apiKey},
		Search: config.SearchConfig{DefaultLimit: 20, HighlightStart: "[", HighlightEnd: "]"},
	}
	return NewServer(cfg, st, testLogger())
}

func doRequest(t *testing.T, srv *Server, method, path, apiKey string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("", &mockStore{})

	w := doRequest(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer("secret", &mockStore{})

	w := doRequest(t, srv, "GET", "/api/v1/stats", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = doRequest(t, srv, "GET", "/api/v1/stats", "wrong", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = doRequest(t, srv, "GET", "/api/v1/stats", "secret", "")
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthBearerToken(t *testing.T) {
	srv := newTestServer("secret", &mockStore{})

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("bearer token status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthSkippedWithoutKey(t *testing.T) {
	srv := newTestServer("", &mockStore{})

	w := doRequest(t, srv, "GET", "/api/v1/stats", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("no-key config status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSearchEndpoint(t *testing.T) {
	st := &mockStore{
		searchResult: &store.SearchResult{
			Rows: []store.SearchRow{{
				ConversationID: "c1", Title: "Budget Planning", Source: "claude",
				OccurrenceCount: 3, MessageMatchCount: 2,
				Snippets: []string{"the [salary] bands"},
			}},
			TotalMatches:     1,
			TotalOccurrences: 3,
		},
	}
	srv := newTestServer("", st)

	w := doRequest(t, srv, "GET",
		"/api/v1/search?q=salary&source=claude&limit=5&offset=10&sort=relevance", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if st.gotQuery != "salary" {
		t.Errorf("query = %q, want salary", st.gotQuery)
	}
	if st.gotOpts.Source != "claude" || st.gotOpts.Limit != 5 ||
		st.gotOpts.Offset != 10 || st.gotOpts.Sort != store.SortRelevance {
		t.Errorf("opts = %+v", st.gotOpts)
	}
	if st.gotOpts.HighlightStart != "[" || st.gotOpts.HighlightEnd != "]" {
		t.Errorf("highlight markers = %q/%q", st.gotOpts.HighlightStart, st.gotOpts.HighlightEnd)
	}

	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.TotalOccurrences != 3 || len(resp.Conversations) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Conversations[0].ID != "c1" || resp.Conversations[0].Occurrences != 3 {
		t.Errorf("conversation = %+v", resp.Conversations[0])
	}
}

func TestSearchDefaultLimitFromConfig(t *testing.T) {
	st := &mockStore{}
	srv := newTestServer("", st)

	w := doRequest(t, srv, "GET", "/api/v1/search?q=anything", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st.gotOpts.Limit != 20 {
		t.Errorf("default limit = %d, want 20", st.gotOpts.Limit)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	srv := newTestServer("", &mockStore{})

	w := doRequest(t, srv, "GET", "/api/v1/conversations/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetMessagesEndpoint(t *testing.T) {
	st := &mockStore{
		messages: []model.Message{
			{ID: "m1", ConversationID: "c1", Sender: model.SenderHuman, Content: "hi"},
		},
	}
	srv := newTestServer("", st)

	w := doRequest(t, srv, "GET", "/api/v1/conversations/c1/messages", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		ConversationID string          `json:"conversation_id"`
		Count          int             `json:"count"`
		Messages       []model.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != "c1" || resp.Count != 1 || len(resp.Messages) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestImportEndpoint(t *testing.T) {
	st := &mockStore{importResult: store.ImportResult{ConversationCount: 1, MessageCount: 1}}
	srv := newTestServer("", st)

	body := `[{"id": "c1", "source": "claude", "messages": [
		{"id": "m1", "sender": "human", "content": "hello"}]}]`
	w := doRequest(t, srv, "POST", "/api/v1/import", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(st.imported) != 1 || st.imported[0].ID != "c1" {
		t.Errorf("imported = %+v", st.imported)
	}
}

func TestImportEndpointRejectsInvalidPayload(t *testing.T) {
	srv := newTestServer("", &mockStore{})

	w := doRequest(t, srv, "POST", "/api/v1/import", "",
		`[{"source": "claude", "messages": []}]`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	st := &mockStore{}
	srv := newTestServer("", st)

	w := doRequest(t, srv, "DELETE", "/api/v1/data", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if st.cleared {
		t.Error("store cleared without confirmation")
	}

	w = doRequest(t, srv, "DELETE", "/api/v1/data?confirm=true", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("confirmed status = %d, want %d", w.Code, http.StatusOK)
	}
	if !st.cleared {
		t.Error("store not cleared after confirmation")
	}
}

func TestActivityEndpointClampsDays(t *testing.T) {
	st := &mockStore{activity: make([]int64, 30)}
	srv := newTestServer("", st)

	w := doRequest(t, srv, "GET", "/api/v1/stats/activity?days=-5", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Days int `json:"days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Days != 30 {
		t.Errorf("days = %d, want default 30", resp.Days)
	}
}
