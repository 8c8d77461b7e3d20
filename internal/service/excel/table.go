package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// tableOptions 控制单元格清洗
type tableOptions struct {
	// sweepAll 对所有单元格执行错误哨兵清洗
	sweepAll bool
	// sweepColumns 无论 sweepAll 与否都清洗的列（规范化后的列名）
	sweepColumns []string
}

// readTable 读取 sheet 为表格：首行表头，其余为数据行（保留空行以维持行号）
func readTable(wb *excelize.File, sheet string, opts tableOptions) (*model.Table, error) {
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	table := &model.Table{Sheet: sheet, Headers: []string{}, Rows: [][]model.Cell{}}
	if len(rows) == 0 {
		return table, nil
	}

	table.Headers = parser.NormalizeHeaders(rows[0])

	swept := make(map[int]bool)
	for i, h := range table.Headers {
		if parser.MatchAny(h, opts.sweepColumns...) {
			swept[i] = true
		}
	}

	for _, row := range rows[1:] {
		cells := make([]model.Cell, len(row))
		for i, raw := range row {
			if opts.sweepAll || swept[i] {
				v, ok := parser.CleanCell(raw)
				cells[i] = model.Cell{Value: v, Present: ok}
				continue
			}
			v, ok := trimmed(raw)
			cells[i] = model.Cell{Value: v, Present: ok}
		}
		table.Rows = append(table.Rows, cells)
	}

	// 去掉末尾全空行（GetRows 可能返回仅含格式的行）
	for len(table.Rows) > 0 && rowEmpty(table.Rows[len(table.Rows)-1]) {
		table.Rows = table.Rows[:len(table.Rows)-1]
	}
	return table, nil
}

func trimmed(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}

func rowEmpty(row []model.Cell) bool {
	for _, c := range row {
		if c.Present {
			return false
		}
	}
	return true
}
