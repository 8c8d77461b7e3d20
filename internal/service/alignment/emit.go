package alignment

import (
	"strconv"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// JustificationHeader 导出时说明列的表头
func JustificationHeader(company string) string {
	return parser.ColJustification + " " + company
}

// Emit 将立方体重新展开为对齐 sheet 的宽表（Project 的逆操作）
func Emit(cube *model.Cube) *model.Table {
	headers := []string{parser.ColRequirementType, parser.ColRequirement}
	for _, company := range cube.Companies {
		headers = append(headers, company, JustificationHeader(company))
	}

	t := &model.Table{Sheet: "Evaluation de la finalité", Headers: headers, Rows: [][]model.Cell{}}
	for _, g := range cube.Groups {
		for _, req := range g.Requirements {
			row := make([]model.Cell, len(headers))
			row[0] = present(g.Type)
			row[1] = present(req.Text)
			for i, company := range cube.Companies {
				cell := req.Cells[company]
				if cell.Score != nil {
					row[2+2*i] = model.Cell{Value: strconv.Itoa(*cell.Score), Present: true}
				}
				if cell.Justification != nil {
					row[3+2*i] = model.Cell{Value: *cell.Justification, Present: true}
				}
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func present(v string) model.Cell {
	return model.Cell{Value: v, Present: v != ""}
}
