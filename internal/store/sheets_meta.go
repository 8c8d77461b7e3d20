package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// SheetMeta 导入时逻辑角色解析到的物理 sheet
type SheetMeta struct {
	ImportLogID  int64    `json:"importLogId"`
	Role         string   `json:"role"`
	SheetName    string   `json:"sheetName"`
	TotalRows    int      `json:"totalRows"`
	TotalColumns int      `json:"totalColumns"`
	Columns      []string `json:"columns"`
}

// InsertSheetMeta 写入 Sheet 元信息（用于追溯）
func (s *Store) InsertSheetMeta(ctx context.Context, meta SheetMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sheets_meta (import_log_id, role, sheet_name, total_rows, total_columns, columns_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, meta.ImportLogID, meta.Role, meta.SheetName, meta.TotalRows, meta.TotalColumns, BuildColumnsJSON(meta.Columns))
	if err != nil {
		return fmt.Errorf("failed to insert sheets_meta: %w", err)
	}
	return nil
}

// ListSheetMeta returns the sheets recorded for an import.
func (s *Store) ListSheetMeta(ctx context.Context, importLogID int64) ([]SheetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT import_log_id, role, sheet_name, total_rows, total_columns, columns_json
		FROM sheets_meta WHERE import_log_id = ? ORDER BY id
	`, importLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets_meta: %w", err)
	}
	defer rows.Close()

	out := []SheetMeta{}
	for rows.Next() {
		var m SheetMeta
		var cols string
		if err := rows.Scan(&m.ImportLogID, &m.Role, &m.SheetName, &m.TotalRows, &m.TotalColumns, &cols); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cols), &m.Columns); err != nil {
			m.Columns = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// BuildColumnsJSON 将列名序列化为 JSON
func BuildColumnsJSON(columns []string) string {
	if columns == nil {
		return "[]"
	}
	b, err := json.Marshal(columns)
	if err != nil {
		return "[]"
	}
	return string(b)
}
