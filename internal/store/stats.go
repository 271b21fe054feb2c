package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wesm/chatvault/internal/model"
)

// Stats summarizes the whole archive.
type Stats struct {
	ConversationCount int64 `json:"conversationCount"`
	MessageCount      int64 `json:"messageCount"`
	// IndexedMessageCount is the number of rows in the search index. It
	// equals MessageCount unless the index has drifted, which would be a
	// bug worth surfacing rather than hiding.
	IndexedMessageCount    int64 `json:"indexedMessageCount"`
	LatestMessageTimestamp int64 `json:"latestMessageTimestamp"`
}

// SourceStats summarizes one import source.
type SourceStats struct {
	Source                string `json:"source"`
	ConversationCount     int64  `json:"conversationCount"`
	MessageCount          int64  `json:"messageCount"`
	LastActivityTimestamp int64  `json:"lastActivityTimestamp"`
}

// GetStats returns archive-wide counts and the newest message timestamp
// (0 when there are no messages).
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM conversations),
				(SELECT COUNT(*) FROM messages),
				(SELECT COUNT(*) FROM messages_fts),
				(SELECT COALESCE(MAX(created_at), 0) FROM messages)
		`)
		return row.Scan(&stats.ConversationCount, &stats.MessageCount,
			&stats.IndexedMessageCount, &stats.LatestMessageTimestamp)
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "get stats", Err: err}
	}
	return &stats, nil
}

// GetSourceStats returns per-source counts, ordered by conversation count
// descending then source name for determinism. Sources present in
// conversations but with no messages still appear, with zero message
// count and zero last activity.
func (s *Store) GetSourceStats(ctx context.Context) ([]SourceStats, error) {
	var out []SourceStats
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT c.source,
			       COUNT(DISTINCT c.id),
			       COUNT(m.id),
			       COALESCE(MAX(m.created_at), 0)
			FROM conversations c
			LEFT JOIN messages m ON m.conversation_id = c.id
			GROUP BY c.source
			ORDER BY COUNT(DISTINCT c.id) DESC, c.source ASC
		`)
		if err != nil {
			return fmt.Errorf("query source stats: %w", err)
		}
		defer rows.Close()

		out = []SourceStats{}
		for rows.Next() {
			var ss SourceStats
			if err := rows.Scan(&ss.Source, &ss.ConversationCount,
				&ss.MessageCount, &ss.LastActivityTimestamp); err != nil {
				return fmt.Errorf("scan source stats: %w", err)
			}
			out = append(out, ss)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "get source stats", Err: err}
	}
	return out, nil
}

// GetActivityByDay returns per-day message counts for the trailing
// window, oldest day first, with explicit zeros for quiet days. Days are
// local calendar days; the window covers today and the (days-1) days
// before it. days must be positive.
func (s *Store) GetActivityByDay(ctx context.Context, days int) ([]int64, error) {
	if days <= 0 {
		return nil, &Error{Kind: KindInternal, Op: "activity by day",
			Err: fmt.Errorf("days must be positive, got %d", days)}
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int64)
	err := s.do(ctx, func() error {
		// created_at is epoch milliseconds; bucket by local calendar day.
		rows, err := s.db.QueryContext(ctx, `
			SELECT date(created_at / 1000, 'unixepoch', 'localtime') AS day,
			       COUNT(*)
			FROM messages
			WHERE created_at >= ?
			GROUP BY day
		`, cutoff.UnixMilli())
		if err != nil {
			return fmt.Errorf("query activity: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var day string
			var n int64
			if err := rows.Scan(&day, &n); err != nil {
				return fmt.Errorf("scan activity: %w", err)
			}
			counts[day] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "activity by day", Err: err}
	}

	out := make([]int64, days)
	for i := 0; i < days; i++ {
		day := cutoff.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = counts[day]
	}
	return out, nil
}

// GetMessages returns every message of a conversation in chronological
// order (id as tie-break for equal timestamps). An unknown conversation
// id yields an empty slice, not an error.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var out []model.Message
	err := s.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, conversation_id, sender, content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at ASC, id ASC
		`, conversationID)
		if err != nil {
			return fmt.Errorf("query messages: %w", err)
		}
		defer rows.Close()

		out = []model.Message{}
		for rows.Next() {
			var m model.Message
			var sender string
			if err := rows.Scan(&m.ID, &m.ConversationID, &sender,
				&m.Content, &m.CreatedAt); err != nil {
				return fmt.Errorf("scan message: %w", err)
			}
			m.Sender = model.Sender(sender)
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "get messages", Err: err}
	}
	return out, nil
}

// GetConversation returns a single conversation header, or nil when the
// id is unknown.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := s.do(ctx, func() error {
		var c model.Conversation
		row := s.db.QueryRowContext(ctx, `
			SELECT id, source, title, created_at, updated_at, message_count
			FROM conversations WHERE id = ?
		`, conversationID)
		err := row.Scan(&c.ID, &c.Source, &c.Title, &c.CreatedAt,
			&c.UpdatedAt, &c.MessageCount)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err == nil {
			conv = &c
		}
		return err
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "get conversation", Err: err}
	}
	return conv, nil
}
