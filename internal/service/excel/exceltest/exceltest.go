// Package exceltest builds in-memory workbooks for tests.
package exceltest

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/xuri/excelize/v2"
)

// Sheet 测试用 sheet：Rows[0] 为表头
type Sheet struct {
	Name string
	Rows [][]interface{}
	// Pictures are anchored in slice order.
	Pictures []Picture
}

// Picture 锚定在 Cell（如 "H2"）的 PNG 图片
type Picture struct {
	Cell string
	Data []byte
}

// Build writes the sheets, in order, into a new workbook and returns its bytes.
func Build(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	for i, s := range sheets {
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), s.Name); err != nil {
				t.Fatalf("rename default sheet to %s: %v", s.Name, err)
			}
		} else if _, err := wb.NewSheet(s.Name); err != nil {
			t.Fatalf("NewSheet %s: %v", s.Name, err)
		}

		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := wb.SetSheetRow(s.Name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow %s!%s: %v", s.Name, cell, err)
			}
		}

		for _, p := range s.Pictures {
			pic := &excelize.Picture{Extension: ".png", File: p.Data}
			if err := wb.AddPictureFromBytes(s.Name, p.Cell, pic); err != nil {
				t.Fatalf("AddPictureFromBytes %s!%s: %v", s.Name, p.Cell, err)
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// PNG returns a solid-colour PNG of the given size.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()

	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// CompanyHeaders 企业 sheet 的标准表头（含历史拼写 Score Golbal）
var CompanyHeaders = []interface{}{
	"Entreprises", "Description", "Localisation (Siège social)", "Année de fondation",
	"Nombre d'employés", "Score Golbal",
	"Alignement avec le besoin", "Avantage concurrentiel", "Maturité technologique et business",
	"Avantage coût", "Satisfaction client", "Accompagnement",
	"URL", "Website", "URL (vidéo)", "Secteur",
}

// Sample 返回包含四个 sheet 的标准测试工作簿
func Sample(t testing.TB) []byte {
	t.Helper()

	return Build(t,
		Sheet{
			Name: "Entreprises",
			Rows: [][]interface{}{
				CompanyHeaders,
				{"Acme", "Widgets for all", "Paris, France", 1998, 120, 4.2, 4, 5, 4, 3, 4.5, 5,
					"https://acme.example/logo.png", "acme.example", "https://video.example/acme", "Industrie"},
				{"Globex", "Global exports", "Lyon, France", 2010, 45, 3.0, 3, 3, 2, "#VALUE!", 4, 3,
					"#REF!", "https://globex.example", "", "Logistique"},
			},
		},
		Sheet{
			Name: "Solutions",
			Rows: [][]interface{}{
				{"Nom de la solution", "Description", "URL (logo)", "Website", "Localisation", "Image 1", "Prix"},
				{"Acme Widget", "The widget", "https://acme.example/w.png", "https://acme.example/widget", "", "https://img.example/1.png", "1000"},
				{"Globex Flow", "Flow engine", "", "globex.example/flow", "Marseille, France", "", "2500"},
			},
		},
		Sheet{
			Name: "Analyse comparative",
			Rows: [][]interface{}{
				{"Entreprises", "Alignement avec le besoin", "Avantage concurrentiel", "Maturité technologique et business",
					"Avantage coût", "Satisfaction client", "Accompagnement", "Score Global"},
				{"Acme", 4, 5, 4, 3, 4.5, 5, 4.2},
				{"Globex", 3, 3, 2, 2, 4, 3, 3.0},
			},
		},
		Sheet{
			Name: "Evaluation de la finalité",
			Rows: [][]interface{}{
				{"Exigence de base", "Exigences", "Acme", "Justification Acme", "Globex", "Justification Globex"},
				{"Base", "Hébergement en France", 1, "Datacenter à Paris", 0, "Hébergé aux US"},
				{"Base", "SSO", 0, "", 1, "SAML"},
				{"Fonctionnel", "Export PDF", 3, "Complet", 2, "Partiel"},
				{"Fonctionnel", "API REST", "", "", "", ""},
			},
		},
	)
}
