package store

import (
	"context"
	"database/sql"
)

// ClearAll deletes every conversation, message, and search-index row. The
// deletion runs in one write transaction with the usual busy retry, so a
// failure leaves the archive intact. A defensive ROLLBACK is issued first
// in case a previous crash left the connection inside an open transaction;
// its error is ignored because there is usually nothing to roll back.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.do(ctx, func() error {
		_, _ = s.db.ExecContext(ctx, "ROLLBACK")

		return s.withWriteTx(ctx, func(tx *sql.Tx) error {
			// Index first, then children, then parents.
			for _, stmt := range []string{
				"DELETE FROM messages_fts",
				"DELETE FROM messages",
				"DELETE FROM conversations",
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return wrapWriteErr("clear all data", err)
	}
	s.logger.Info("cleared all data", "db", s.dbPath)
	return nil
}
