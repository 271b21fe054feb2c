package store_test

import (
	"context"
	"testing"

	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil/dbtest"
)

func TestClearAll(t *testing.T) {
	s := dbtest.NewTestStore(t)
	ctx := context.Background()
	dbtest.SeedConversations(t, s,
		dbtest.Conv("c1", "claude", "One", 1700000000000, "a", "b"),
		dbtest.Conv("c2", "chatgpt", "Two", 1700100000000, "c"),
	)

	dbtest.MustNoErr(t, s.ClearAll(ctx))

	stats, err := s.GetStats(ctx)
	dbtest.MustNoErr(t, err)
	if stats.ConversationCount != 0 || stats.MessageCount != 0 || stats.IndexedMessageCount != 0 {
		t.Errorf("stats after clear = %+v, want all zero", stats)
	}

	res, err := s.Search(ctx, "a", store.SearchOptions{})
	dbtest.MustNoErr(t, err)
	if res.TotalMatches != 0 {
		t.Errorf("search after clear found %d matches", res.TotalMatches)
	}

	// Clearing an already-empty archive is fine.
	dbtest.MustNoErr(t, s.ClearAll(ctx))

	// The store remains usable for new imports.
	dbtest.SeedConversations(t, s,
		dbtest.Conv("c3", "claude", "Fresh", 1700200000000, "fresh start"))
	stats, err = s.GetStats(ctx)
	dbtest.MustNoErr(t, err)
	if stats.ConversationCount != 1 {
		t.Errorf("ConversationCount after re-import = %d, want 1", stats.ConversationCount)
	}
}
