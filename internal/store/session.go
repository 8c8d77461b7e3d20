package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get 读取会话键值
func (s *Store) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM session_values WHERE session_id = ? AND key = ?", sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}
	return value, true, nil
}

// Set 写入会话键值
func (s *Store) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_values (session_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

// Delete 删除会话键值
func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM session_values WHERE session_id = ? AND key = ?", sessionID, key)
	if err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

// SessionKeys lists the keys stored for a session.
func (s *Store) SessionKeys(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM session_values WHERE session_id = ? ORDER BY key", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PurgeSessions 删除超过 ttl 未更新的会话值，返回删除行数
func (s *Store) PurgeSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UTC().Format("2006-01-02 15:04:05")
	res, err := s.db.ExecContext(ctx, "DELETE FROM session_values WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
