package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/chatvault/internal/model"
	"github.com/wesm/chatvault/internal/store"
	"github.com/wesm/chatvault/internal/testutil/dbtest"
)

func TestGetStatsEmpty(t *testing.T) {
	s := dbtest.NewTestStore(t)

	stats, err := s.GetStats(context.Background())
	dbtest.MustNoErr(t, err)
	want := &store.Stats{}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestGetStats(t *testing.T) {
	s := dbtest.NewTestStore(t)
	dbtest.SeedConversations(t, s,
		dbtest.Conv("c1", "claude", "One", 1700000000000, "a", "b"),
		dbtest.Conv("c2", "chatgpt", "Two", 1700100000000, "c"),
	)

	stats, err := s.GetStats(context.Background())
	dbtest.MustNoErr(t, err)
	if stats.ConversationCount != 2 || stats.MessageCount != 3 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.IndexedMessageCount != 3 {
		t.Errorf("IndexedMessageCount = %d, want 3", stats.IndexedMessageCount)
	}
	if stats.LatestMessageTimestamp != 1700100000000 {
		t.Errorf("LatestMessageTimestamp = %d", stats.LatestMessageTimestamp)
	}
}

func TestGetSourceStats(t *testing.T) {
	s := dbtest.NewTestStore(t)
	dbtest.SeedConversations(t, s,
		dbtest.Conv("c1", "claude", "One", 1700000000000, "a", "b"),
		dbtest.Conv("c2", "claude", "Two", 1700100000000, "c"),
		dbtest.Conv("c3", "chatgpt", "Three", 1700200000000, "d"),
	)

	stats, err := s.GetSourceStats(context.Background())
	dbtest.MustNoErr(t, err)

	want := []store.SourceStats{
		{Source: "claude", ConversationCount: 2, MessageCount: 3,
			LastActivityTimestamp: 1700100000000},
		{Source: "chatgpt", ConversationCount: 1, MessageCount: 1,
			LastActivityTimestamp: 1700200000000},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("source stats mismatch (-want +got):\n%s", diff)
	}
}

func TestGetActivityByDay(t *testing.T) {
	s := dbtest.NewTestStore(t)
	ctx := context.Background()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -8)

	dbtest.SeedConversations(t, s, model.Conversation{
		ID: "c1", Source: "claude", Title: "Activity",
		CreatedAt: lastWeek.UnixMilli(), UpdatedAt: today.UnixMilli(),
		Messages: []model.Message{
			{ID: "m1", ConversationID: "c1", Sender: model.SenderHuman,
				Content: "old", CreatedAt: lastWeek.UnixMilli()},
			{ID: "m2", ConversationID: "c1", Sender: model.SenderHuman,
				Content: "recent one", CreatedAt: yesterday.UnixMilli()},
			{ID: "m3", ConversationID: "c1", Sender: model.SenderAssistant,
				Content: "recent two", CreatedAt: yesterday.UnixMilli()},
			{ID: "m4", ConversationID: "c1", Sender: model.SenderHuman,
				Content: "today", CreatedAt: today.UnixMilli()},
		},
	})

	days, err := s.GetActivityByDay(ctx, 7)
	dbtest.MustNoErr(t, err)
	if len(days) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(days))
	}
	// Oldest first: the 8-days-ago message falls outside the window.
	if days[6] != 1 {
		t.Errorf("today = %d, want 1", days[6])
	}
	if days[5] != 2 {
		t.Errorf("yesterday = %d, want 2", days[5])
	}
	var total int64
	for _, n := range days {
		total += n
	}
	if total != 3 {
		t.Errorf("window total = %d, want 3", total)
	}

	if _, err := s.GetActivityByDay(ctx, 0); err == nil {
		t.Error("expected error for non-positive window")
	}
}

func TestGetMessagesOrderAndUnknownID(t *testing.T) {
	s := dbtest.NewTestStore(t)
	ctx := context.Background()

	// Two messages share a timestamp; id breaks the tie.
	dbtest.SeedConversations(t, s, model.Conversation{
		ID: "c1", Source: "claude", Title: "Ties",
		CreatedAt: 1, UpdatedAt: 2,
		Messages: []model.Message{
			{ID: "m-b", ConversationID: "c1", Sender: model.SenderHuman,
				Content: "second by id", CreatedAt: 1000},
			{ID: "m-a", ConversationID: "c1", Sender: model.SenderHuman,
				Content: "first by id", CreatedAt: 1000},
			{ID: "m-c", ConversationID: "c1", Sender: model.SenderAssistant,
				Content: "latest", CreatedAt: 2000},
		},
	})

	msgs, err := s.GetMessages(ctx, "c1")
	dbtest.MustNoErr(t, err)
	gotIDs := make([]string, len(msgs))
	for i, m := range msgs {
		gotIDs[i] = m.ID
	}
	want := []string{"m-a", "m-b", "m-c"}
	if diff := cmp.Diff(want, gotIDs); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	none, err := s.GetMessages(ctx, "no-such-conversation")
	dbtest.MustNoErr(t, err)
	if len(none) != 0 {
		t.Errorf("unknown conversation returned %d messages", len(none))
	}
}

func TestGetConversationUnknownIDIsNil(t *testing.T) {
	s := dbtest.NewTestStore(t)

	conv, err := s.GetConversation(context.Background(), "missing")
	dbtest.MustNoErr(t, err)
	if conv != nil {
		t.Errorf("conversation = %+v, want nil", conv)
	}
}
