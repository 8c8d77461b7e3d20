package store

import (
	"context"
	"fmt"
	"time"
)

// ImportLog 一次工作簿导入的记录
type ImportLog struct {
	ID           int64      `json:"id"`
	SessionID    string     `json:"sessionId"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"fileSize"`
	FileHash     string     `json:"fileHash"`
	WorkbookID   string     `json:"workbookId"`
	Companies    int        `json:"companies"`
	Solutions    int        `json:"solutions"`
	Requirements int        `json:"requirements"`
	Logos        int        `json:"logos"`
	Warnings     int        `json:"warnings"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ImportResult 导入完成时回写的统计
type ImportResult struct {
	WorkbookID   string
	Companies    int
	Solutions    int
	Requirements int
	Logos        int
	Warnings     int
	Status       string
	ErrorMessage string
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, sessionID, filename string, fileSize int64, fileHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (session_id, filename, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, 'processing')
	`, sessionID, filename, fileSize, fileHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(ctx context.Context, id int64, r ImportResult) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			workbook_id = ?,
			companies = ?,
			solutions = ?,
			requirements = ?,
			logos = ?,
			warnings = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, r.WorkbookID, r.Companies, r.Solutions, r.Requirements, r.Logos, r.Warnings, r.Status, r.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs returns the most recent imports of a session, newest first.
func (s *Store) ListImportLogs(ctx context.Context, sessionID string, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, filename, file_size, file_hash, workbook_id,
			companies, solutions, requirements, logos, warnings,
			status, error_message, created_at, completed_at
		FROM import_logs WHERE session_id = ?
		ORDER BY id DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Filename, &l.FileSize, &l.FileHash, &l.WorkbookID,
			&l.Companies, &l.Solutions, &l.Requirements, &l.Logos, &l.Warnings,
			&l.Status, &l.ErrorMessage, &l.CreatedAt, &l.CompletedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
