package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wesm/chatvault/internal/model"
)

// ImportResult reports what an import batch wrote.
type ImportResult struct {
	ConversationCount int
	MessageCount      int
}

// write-transaction retry policy for transient lock contention. Backoff is
// linear in the attempt number; after the last attempt the underlying
// error is surfaced.
const (
	writeTxAttempts = 5
	writeTxBackoff  = 100 * time.Millisecond
)

// withWriteTx runs fn inside a write transaction. The DSN's
// _txlock=immediate makes BEGIN acquire the write lock up front, so the
// transaction never degrades to a read lock it would later fail to
// upgrade. The whole transaction is retried on SQLITE_BUSY with linear
// backoff; any other failure rolls back and returns immediately.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= writeTxAttempts; attempt++ {
		err := s.runWriteTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusy(err) || attempt == writeTxAttempts {
			break
		}
		s.logger.Debug("write transaction busy, retrying",
			"attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * writeTxBackoff)
	}
	return lastErr
}

func (s *Store) runWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// InsertConversations persists a batch of canonical conversations
// atomically and idempotently. Each conversation row is replaced
// wholesale: its previous messages and search-index entries are deleted
// before the new set is inserted, so the index mirrors the message table
// exactly even when message ids changed between exports. On any failure
// the entire batch rolls back; re-running the same batch produces the
// same final state.
func (s *Store) InsertConversations(ctx context.Context, convs []model.Conversation) (ImportResult, error) {
	var result ImportResult
	if len(convs) == 0 {
		return result, nil
	}

	err := s.do(ctx, func() error {
		return s.withWriteTx(ctx, func(tx *sql.Tx) error {
			// Reset so a retried transaction does not double-count.
			result = ImportResult{}
			for i := range convs {
				if err := insertConversationTx(tx, &convs[i]); err != nil {
					return err
				}
				result.ConversationCount++
				result.MessageCount += len(convs[i].Messages)
			}
			return nil
		})
	})
	if err != nil {
		result = ImportResult{}
		return result, wrapWriteErr("insert conversations", err)
	}

	s.logger.Info("imported conversations",
		"conversations", result.ConversationCount,
		"messages", result.MessageCount)
	return result, nil
}

func insertConversationTx(tx *sql.Tx, conv *model.Conversation) error {
	title := conv.DisplayTitle()

	// Clear stale search-index entries and messages from any prior import
	// of this conversation id before writing the fresh set.
	if _, err := tx.Exec(
		`DELETE FROM messages_fts WHERE conversation_id = ?`, conv.ID,
	); err != nil {
		return fmt.Errorf("clear index for %s: %w", conv.ID, err)
	}
	if _, err := tx.Exec(
		`DELETE FROM messages WHERE conversation_id = ?`, conv.ID,
	); err != nil {
		return fmt.Errorf("clear messages for %s: %w", conv.ID, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO conversations (id, source, title, created_at, updated_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count
	`, conv.ID, conv.Source, title, conv.CreatedAt, conv.UpdatedAt, len(conv.Messages)); err != nil {
		return fmt.Errorf("upsert conversation %s: %w", conv.ID, err)
	}

	for j := range conv.Messages {
		msg := &conv.Messages[j]
		if _, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, sender, content, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				conversation_id = excluded.conversation_id,
				sender = excluded.sender,
				content = excluded.content,
				created_at = excluded.created_at
		`, msg.ID, conv.ID, string(msg.Sender), msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("upsert message %s: %w", msg.ID, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO messages_fts (content, title, conversation_id, message_id)
			VALUES (?, ?, ?, ?)
		`, msg.Content, title, conv.ID, msg.ID); err != nil {
			return fmt.Errorf("index message %s: %w", msg.ID, err)
		}
	}
	return nil
}

// wrapWriteErr attaches the classified kind to a write-path error.
func wrapWriteErr(op string, err error) error {
	return &Error{Kind: ErrKind(err), Op: op, Err: err}
}
