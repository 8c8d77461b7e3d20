package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPivotMissing is returned when the alignment sheet has no Exigences column.
	ErrPivotMissing = errors.New("required column absent: Exigences")
	// ErrNoWorkbook 当前会话尚未上传工作簿
	ErrNoWorkbook = errors.New("no workbook loaded")
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("not found")
)

// SheetNotFoundError 逻辑 sheet 角色无法解析到物理 sheet
type SheetNotFoundError struct {
	Role      SheetRole
	Aliases   []string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %s not found (expected one of %q); available sheets: %s",
		e.Role, e.Aliases, strings.Join(e.Available, ", "))
}

// ColumnMissingError 必需列缺失
type ColumnMissingError struct {
	Sheet  string
	Column string
}

func (e *ColumnMissingError) Error() string {
	return fmt.Sprintf("sheet %q: required column %q absent", e.Sheet, e.Column)
}

// MalformedScoreError is a non-fatal score cell that could not be parsed.
// Row is the data-row index and Col the 0-based column of the table.
type MalformedScoreError struct {
	Sheet string
	Row   int
	Col   int
	Value string
}

func (e *MalformedScoreError) Error() string {
	return fmt.Sprintf("sheet %q data row %d col %d: malformed score %q", e.Sheet, e.Row, e.Col, e.Value)
}

// ImageExtractionError 单张嵌入图片提取失败（不影响其他图片）
type ImageExtractionError struct {
	Index int
	Cell  string
	Err   error
}

func (e *ImageExtractionError) Error() string {
	return fmt.Sprintf("image %d at %s: %v", e.Index, e.Cell, e.Err)
}

func (e *ImageExtractionError) Unwrap() error { return e.Err }

// GeocodingError 地址解析失败
type GeocodingError struct {
	Address string
	Err     error
}

func (e *GeocodingError) Error() string {
	return fmt.Sprintf("geocoding %q: %v", e.Address, e.Err)
}

func (e *GeocodingError) Unwrap() error { return e.Err }

// PersistenceIOError 用户图片文件读写失败
type PersistenceIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceIOError) Unwrap() error { return e.Err }
