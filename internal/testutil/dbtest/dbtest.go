// Package dbtest provides shared database test helpers for creating test
// stores and seeding conversations. It is importable from any test package
// without circular dependency issues.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/wesm/chatvault/internal/model"
	"github.com/wesm/chatvault/internal/store"
)

// MustNoErr fails the test immediately if err is non-nil.
func MustNoErr(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestStore opens a store on a fresh on-disk database under the test's
// temp dir with the schema initialized, and closes it on cleanup. On-disk
// rather than :memory: because the production DSN parameters (WAL,
// immediate transactions) only behave meaningfully with a real file.
func NewTestStore(t testing.TB) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "chatvault.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s
}

// Conv builds a conversation with sequentially timestamped messages.
// Message contents alternate sender starting with human. Timestamps start
// at base (epoch ms) and step by one minute per message.
func Conv(id, source, title string, base int64, contents ...string) model.Conversation {
	const step = 60_000
	conv := model.Conversation{
		ID:        id,
		Source:    source,
		Title:     title,
		CreatedAt: base,
		UpdatedAt: base + int64(len(contents))*step,
	}
	for i, content := range contents {
		sender := model.SenderHuman
		if i%2 == 1 {
			sender = model.SenderAssistant
		}
		conv.Messages = append(conv.Messages, model.Message{
			ID:             fmt.Sprintf("%s-m%d", id, i+1),
			ConversationID: id,
			Sender:         sender,
			Content:        content,
			CreatedAt:      base + int64(i)*step,
		})
	}
	return conv
}

// SeedConversations imports the given conversations and fails the test on
// any error.
func SeedConversations(t testing.TB, s *store.Store, convs ...model.Conversation) {
	t.Helper()
	if _, err := s.InsertConversations(context.Background(), convs); err != nil {
		t.Fatalf("seed conversations: %v", err)
	}
}
