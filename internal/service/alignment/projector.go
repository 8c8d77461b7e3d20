package alignment

import (
	"math"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// companyColumn 一对 (评分列, 说明列)
type companyColumn struct {
	name  string
	score int
	just  int
}

// stripe 返回 pivot 之后交替出现的企业评分列与说明列，表头为空的评分列被跳过
func stripe(t *model.Table, pivot int) []companyColumn {
	width := t.Width()
	var cols []companyColumn
	for c := pivot + 1; c < width; c += 2 {
		name := t.Header(c)
		if name == "" {
			continue
		}
		cols = append(cols, companyColumn{name: name, score: c, just: c + 1})
	}
	return cols
}

// Project 将对齐 sheet 的宽表投影为 (需求类型, 需求, 企业) 立方体。
// 所有企业评分单元均为空的行被丢弃；无法解析的评分保留该行并投影为缺失评分，
// 记录在 Cube.Malformed 中。同一 (类型, 需求) 重复出现时后一行覆盖前一行的非缺失单元。
func Project(t *model.Table) (*model.Cube, error) {
	pivot := t.ColumnIndex(parser.ColRequirement)
	if pivot < 0 {
		return nil, model.ErrPivotMissing
	}
	typeCol := t.ColumnIndex(parser.ColRequirementType)
	if typeCol < 0 {
		return nil, &model.ColumnMissingError{Sheet: t.Sheet, Column: parser.ColRequirementType}
	}

	cols := stripe(t, pivot)
	cube := &model.Cube{Companies: make([]string, 0, len(cols)), Groups: []*model.RequirementGroup{}}
	for _, c := range cols {
		cube.Companies = append(cube.Companies, c.name)
	}

	lastType := ""
	for r := 0; r < t.Len(); r++ {
		// 合并单元格只在首行有值，沿用上一行的需求类型
		if tc := t.Cell(r, typeCol); tc.Present {
			lastType = tc.Value
		}

		if !anyScorePresent(t, r, cols) {
			continue
		}

		text := t.Cell(r, pivot).Value
		cells := make(map[string]model.AlignmentCell, len(cols))
		for _, c := range cols {
			score := t.Cell(r, c.score)
			cell := projectCell(lastType, score, t.Cell(r, c.just))
			if score.Present && cell.Score == nil {
				cube.Malformed = append(cube.Malformed, &model.MalformedScoreError{
					Sheet: t.Sheet, Row: r, Col: c.score, Value: score.Value,
				})
			}
			cells[c.name] = cell
		}
		merge(cube, lastType, text, cells)
	}
	return cube, nil
}

func anyScorePresent(t *model.Table, row int, cols []companyColumn) bool {
	for _, c := range cols {
		if t.Cell(row, c.score).Present {
			return true
		}
	}
	return false
}

func projectCell(reqType string, score, just model.Cell) model.AlignmentCell {
	var cell model.AlignmentCell
	if score.Present {
		if f, ok := parser.ParseNumber(score.Value); ok {
			v := int(math.Floor(f))
			cell.Score = &v
		}
	}
	if just.Present {
		s := just.Value
		cell.Justification = &s
	}
	cell.Badge = Badge(reqType, cell.Score)
	return cell
}

func merge(cube *model.Cube, reqType, text string, cells map[string]model.AlignmentCell) {
	group := cube.Group(reqType)
	if group == nil {
		group = &model.RequirementGroup{Type: reqType}
		cube.Groups = append(cube.Groups, group)
	}
	for _, existing := range group.Requirements {
		if existing.Text != text {
			continue
		}
		for company, cell := range cells {
			prev := existing.Cells[company]
			if cell.Score == nil {
				cell.Score = prev.Score
			}
			if cell.Justification == nil {
				cell.Justification = prev.Justification
			}
			cell.Badge = Badge(reqType, cell.Score)
			existing.Cells[company] = cell
		}
		return
	}
	group.Requirements = append(group.Requirements, &model.Requirement{Type: reqType, Text: text, Cells: cells})
}
