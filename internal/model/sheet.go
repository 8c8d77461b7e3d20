package model

// SheetRole 工作簿中的逻辑 sheet 角色
type SheetRole string

const (
	RoleCompanies SheetRole = "companies"
	RoleSolutions SheetRole = "solutions"
	RoleAnalysis  SheetRole = "analysis"
	RoleAlignment SheetRole = "alignment"
)

// SheetRoles lists every role a workbook must provide, in load order.
var SheetRoles = []SheetRole{RoleCompanies, RoleSolutions, RoleAnalysis, RoleAlignment}

// Cell 单元格值；Present 为 false 表示缺失（空白或错误哨兵）
type Cell struct {
	Value   string `json:"value"`
	Present bool   `json:"present"`
}

// Table 一个 sheet 解析后的表格：首行为表头，其余为数据行
type Table struct {
	Sheet   string   `json:"sheet"`
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

// NewTable builds a table from plain strings. Empty strings are absent cells.
func NewTable(sheet string, headers []string, rows [][]string) *Table {
	t := &Table{
		Sheet:   sheet,
		Headers: append([]string(nil), headers...),
		Rows:    make([][]Cell, 0, len(rows)),
	}
	for _, row := range rows {
		cells := make([]Cell, len(row))
		for i, v := range row {
			cells[i] = Cell{Value: v, Present: v != ""}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Len 数据行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width returns the number of columns, taking ragged rows into account.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	w := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// ColumnIndex 返回表头完全匹配的列索引，找不到返回 -1
func (t *Table) ColumnIndex(header string) int {
	if t == nil {
		return -1
	}
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Header returns the header of column col, or "" past the header row.
func (t *Table) Header(col int) string {
	if t == nil || col < 0 || col >= len(t.Headers) {
		return ""
	}
	return t.Headers[col]
}

// Cell 返回指定位置的单元格，越界视为缺失
func (t *Table) Cell(row, col int) Cell {
	if t == nil || row < 0 || row >= len(t.Rows) || col < 0 {
		return Cell{}
	}
	r := t.Rows[row]
	if col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// Workbook 一次上传解析得到的完整快照
type Workbook struct {
	ID         string               `json:"id"`
	ContentKey string               `json:"contentKey"`
	SheetNames []string             `json:"sheetNames"`
	Sheets     map[SheetRole]string `json:"sheets"`

	Companies *Table `json:"companies"`
	Solutions *Table `json:"solutions"`
	Analysis  *Table `json:"analysis"`
	Alignment *Table `json:"alignment"`

	// CompanyLogos maps a Companies data-row index to PNG bytes.
	CompanyLogos map[int][]byte `json:"-"`
}
