package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/alignment"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
)

// Sheet names of the exported workbook.
const (
	SheetAlignment  = "Evaluation de la finalité"
	SheetComparison = "Analyse comparative"
	SheetWarnings   = "Avertissements"
)

// badgeFills 徽章对应的单元格底色
var badgeFills = map[model.BadgeToken]string{
	model.BadgeNo:    "F8D7DA",
	model.BadgeYes:   "D4EDDA",
	model.BadgeZero:  "F8D7DA",
	model.BadgeOne:   "FFE5B4",
	model.BadgeTwo:   "FFF3CD",
	model.BadgeThree: "D4EDDA",
}

// Exporter 将会话快照导出为 Excel
type Exporter struct {
	headerStyle int
	badgeStyles map[model.BadgeToken]int
}

// Export builds a workbook with the alignment grid (re-emitted in its wide
// shape), the comparison table and the validation warnings.
func Export(snap *dashboard.Snapshot, progress func(ProgressEvent)) (*excelize.File, error) {
	if snap == nil {
		return nil, model.ErrNoWorkbook
	}
	f := excelize.NewFile()
	e := &Exporter{badgeStyles: make(map[model.BadgeToken]int)}
	if err := e.initStyles(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	reportProgress(progress, 5, "准备导出")

	first := f.GetSheetName(0)
	if snap.Alignment != nil {
		if err := f.SetSheetName(first, SheetAlignment); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		if err := e.writeAlignment(f, snap.Alignment); err != nil {
			_ = f.Close()
			return nil, err
		}
		reportProgress(progress, 50, "对齐表已写入")
	}

	if snap.Alignment == nil {
		if err := f.SetSheetName(first, SheetComparison); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(SheetComparison); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := e.writeComparison(f, snap); err != nil {
		_ = f.Close()
		return nil, err
	}
	reportProgress(progress, 80, "评分表已写入")

	if warnings := snap.Model.Warnings(); len(warnings) > 0 {
		if _, err := f.NewSheet(SheetWarnings); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet: %w", err)
		}
		rows := [][]interface{}{{"Type", "Entité", "Message"}}
		for _, w := range warnings {
			rows = append(rows, []interface{}{string(w.Kind), w.Entity, w.Message})
		}
		if err := e.writeRows(f, SheetWarnings, rows); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	reportProgress(progress, 100, "导出完成")
	return f, nil
}

// WriteTo 导出并写入 w
func WriteTo(w io.Writer, snap *dashboard.Snapshot, progress func(ProgressEvent)) error {
	f, err := Export(snap, progress)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) initStyles(f *excelize.File) error {
	var err error
	e.headerStyle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for token, color := range badgeFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("create badge style: %w", err)
		}
		e.badgeStyles[token] = id
	}
	return nil
}

func (e *Exporter) writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err := f.SetCellStyle(sheet, "A1", end, e.headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	return nil
}

func (e *Exporter) writeAlignment(f *excelize.File, cube *model.Cube) error {
	wide := alignment.Emit(cube)

	rows := make([][]interface{}, 0, wide.Len()+1)
	header := make([]interface{}, len(wide.Headers))
	for i, h := range wide.Headers {
		header[i] = h
	}
	rows = append(rows, header)
	for _, r := range wide.Rows {
		row := make([]interface{}, len(r))
		for i, c := range r {
			switch {
			case !c.Present:
				row[i] = nil
			case i >= 2 && i%2 == 0:
				// 评分列写为数值
				if n, err := strconv.Atoi(c.Value); err == nil {
					row[i] = n
					continue
				}
				row[i] = c.Value
			default:
				row[i] = c.Value
			}
		}
		rows = append(rows, row)
	}
	if err := e.writeRows(f, SheetAlignment, rows); err != nil {
		return err
	}

	// 按徽章着色评分单元格
	line := 2
	for _, g := range cube.Groups {
		for _, req := range g.Requirements {
			for i, company := range cube.Companies {
				style, ok := e.badgeStyles[req.Cells[company].Badge]
				if !ok {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(3+2*i, line)
				if err := f.SetCellStyle(SheetAlignment, cell, cell, style); err != nil {
					return fmt.Errorf("style %s: %w", cell, err)
				}
			}
			line++
		}
	}
	return f.SetColWidth(SheetAlignment, "B", "B", 48)
}

func (e *Exporter) writeComparison(f *excelize.File, snap *dashboard.Snapshot) error {
	criteria := snap.Model.Criteria()
	header := []interface{}{"Entreprises"}
	for _, c := range criteria {
		header = append(header, c.Label)
	}
	header = append(header, model.GlobalScoreColumn)

	rows := [][]interface{}{header}
	for _, c := range snap.Model.Companies() {
		row := []interface{}{c.Name}
		for _, crit := range criteria {
			if v, ok := c.Scores[crit.ID]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if c.GlobalScore != nil {
			row = append(row, *c.GlobalScore)
		} else {
			row = append(row, nil)
		}
		rows = append(rows, row)
	}
	return e.writeRows(f, SheetComparison, rows)
}
