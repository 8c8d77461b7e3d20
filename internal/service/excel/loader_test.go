package excel_test

import (
	"bytes"
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel/exceltest"
)

func minimalSheets(names ...string) []exceltest.Sheet {
	sheets := make([]exceltest.Sheet, 0, len(names))
	for _, n := range names {
		sheets = append(sheets, exceltest.Sheet{Name: n, Rows: [][]interface{}{{"Entreprises"}, {"Acme"}}})
	}
	return sheets
}

func TestLoad_AliasFallback(t *testing.T) {
	t.Parallel()

	sheets := []exceltest.Sheet{
		{Name: "Analyse comparative", Rows: [][]interface{}{{"Entreprises"}, {"Acme"}}},
		{Name: "Entreprise", Rows: [][]interface{}{{"Entreprises", "Description"}, {"Acme", "From singular sheet"}}},
		{Name: "Alignement avec le besoin", Rows: [][]interface{}{{"Exigence de base", "Exigences", "Acme", ""}, {"Base", "SSO", 1, "ok"}}},
		{Name: "Solutions", Rows: [][]interface{}{{"Solution"}, {"Acme Widget"}}},
	}
	wb, err := excel.Load(exceltest.Build(t, sheets...), excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := wb.Sheets[model.RoleCompanies]; got != "Entreprise" {
		t.Fatalf("companies sheet = %q", got)
	}
	if got := wb.Sheets[model.RoleAlignment]; got != "Alignement avec le besoin" {
		t.Fatalf("alignment sheet = %q", got)
	}
	if v := wb.Companies.Cell(0, 1).Value; v != "From singular sheet" {
		t.Fatalf("companies read from wrong sheet: %q", v)
	}
}

func TestLoad_MissingRoleFailsWithSheetList(t *testing.T) {
	t.Parallel()

	data := exceltest.Build(t, minimalSheets("Entreprises", "Solutions", "Comparatif")...)
	_, err := excel.Load(data, excel.DefaultLoadOptions())

	var nf *model.SheetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected SheetNotFoundError, got %v", err)
	}
	if nf.Role != model.RoleAlignment {
		t.Fatalf("role = %s", nf.Role)
	}
	if len(nf.Available) != 3 {
		t.Fatalf("available = %q", nf.Available)
	}
}

func TestLoad_HeaderRepairAndSentinels(t *testing.T) {
	t.Parallel()

	wb, err := excel.Load(exceltest.Sample(t), excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	col := wb.Companies.ColumnIndex(model.GlobalScoreColumn)
	if col < 0 {
		t.Fatalf("Score Global header not repaired: %q", wb.Companies.Headers)
	}
	if got := wb.Companies.Cell(0, col).Value; got != "4.2" {
		t.Fatalf("Acme global = %q", got)
	}
	if got := wb.Companies.Cell(1, col).Value; got != "3" {
		t.Fatalf("Globex global = %q", got)
	}

	logo := wb.Companies.ColumnIndex("URL")
	if c := wb.Companies.Cell(1, logo); c.Present {
		t.Fatalf("#REF! logo should be absent, got %+v", c)
	}
	cost := wb.Companies.ColumnIndex("Avantage coût")
	if c := wb.Companies.Cell(1, cost); c.Present {
		t.Fatalf("#VALUE! score should be absent, got %+v", c)
	}
}

func TestLoad_LogoSweepWithoutGlobalSweep(t *testing.T) {
	t.Parallel()

	opts := excel.DefaultLoadOptions()
	opts.SweepAllCells = false
	wb, err := excel.Load(exceltest.Sample(t), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c := wb.Companies.Cell(1, wb.Companies.ColumnIndex("URL")); c.Present {
		t.Fatalf("logo column must always be swept, got %+v", c)
	}
	if c := wb.Companies.Cell(1, wb.Companies.ColumnIndex("Avantage coût")); !c.Present || c.Value != "#VALUE!" {
		t.Fatalf("other columns keep sentinels when sweep is off, got %+v", c)
	}
}

func TestLoad_ExtractsCompanyLogosByDataRow(t *testing.T) {
	t.Parallel()

	red := exceltest.PNG(t, 4, 4, color.NRGBA{R: 255, A: 255})
	blue := exceltest.PNG(t, 6, 3, color.NRGBA{B: 255, A: 255})
	sheets := []exceltest.Sheet{
		{
			Name:     "Entreprises",
			Rows:     [][]interface{}{{"Entreprises", "Logo"}, {"Acme"}, {"Globex"}, {"Initech"}},
			Pictures: []exceltest.Picture{{Cell: "B2", Data: red}, {Cell: "B4", Data: blue}},
		},
		{Name: "Solutions", Rows: [][]interface{}{{"Solution"}}},
		{Name: "Comparatif", Rows: [][]interface{}{{"Entreprises"}}},
		{Name: "Evaluation de la finalité", Rows: [][]interface{}{{"Exigence de base", "Exigences"}}},
	}

	wb, err := excel.Load(exceltest.Build(t, sheets...), excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(wb.CompanyLogos) != 2 {
		t.Fatalf("expected 2 logos, got %d", len(wb.CompanyLogos))
	}
	if _, ok := wb.CompanyLogos[1]; ok {
		t.Fatalf("Globex has no logo")
	}

	img, err := imaging.Decode(bytes.NewReader(wb.CompanyLogos[2]))
	if err != nil {
		t.Fatalf("decode logo: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 3 {
		t.Fatalf("Initech logo bounds = %v", b)
	}
	if !bytes.HasPrefix(wb.CompanyLogos[0], []byte("\x89PNG")) {
		t.Fatalf("logo not re-encoded as png")
	}
}

func TestLoad_LaterImageOnSameRowWins(t *testing.T) {
	t.Parallel()

	red := exceltest.PNG(t, 4, 4, color.NRGBA{R: 255, A: 255})
	green := exceltest.PNG(t, 8, 2, color.NRGBA{G: 255, A: 255})
	sheets := []exceltest.Sheet{
		{
			Name:     "Entreprises",
			Rows:     [][]interface{}{{"Entreprises", "Logo", "Logo 2"}, {"Acme"}},
			Pictures: []exceltest.Picture{{Cell: "B2", Data: red}, {Cell: "C2", Data: green}},
		},
		{Name: "Solutions", Rows: [][]interface{}{{"Solution"}}},
		{Name: "Comparatif", Rows: [][]interface{}{{"Entreprises"}}},
		{Name: "Evaluation de la finalité", Rows: [][]interface{}{{"Exigence de base", "Exigences"}}},
	}

	wb, err := excel.Load(exceltest.Build(t, sheets...), excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(wb.CompanyLogos) != 1 {
		t.Fatalf("expected 1 logo, got %d", len(wb.CompanyLogos))
	}
	img, err := imaging.Decode(bytes.NewReader(wb.CompanyLogos[0]))
	if err != nil {
		t.Fatalf("decode logo: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 2 {
		t.Fatalf("expected the C2 image to win, got bounds %v", b)
	}
}

func TestToPNG_RejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := excel.ToPNG([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := excel.ToPNG(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestDataRowIndex(t *testing.T) {
	t.Parallel()

	if got := excel.DataRowIndex(0); got != -1 {
		t.Fatalf("header row -> %d", got)
	}
	if got := excel.DataRowIndex(3); got != 2 {
		t.Fatalf("sheet row 3 -> %d", got)
	}
}

func TestCache_MemoisesByContent(t *testing.T) {
	t.Parallel()

	cache, err := excel.NewCache(4, excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	data := exceltest.Sample(t)

	var wg sync.WaitGroup
	results := make([]*model.Workbook, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wb, err := cache.Load(data)
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			results[i] = wb
		}(i)
	}
	wg.Wait()

	for i, wb := range results {
		if wb == nil || wb != results[0] {
			t.Fatalf("result %d is not the memoised snapshot", i)
		}
	}
	if cache.Len() != 1 || !cache.Contains(excel.ContentKey(data)) {
		t.Fatalf("cache len = %d", cache.Len())
	}
}

func TestCache_DoesNotMemoiseFailures(t *testing.T) {
	t.Parallel()

	cache, err := excel.NewCache(4, excel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, err := cache.Load([]byte("garbage")); err == nil {
		t.Fatalf("expected error")
	}
	if cache.Len() != 0 {
		t.Fatalf("failed load was cached")
	}
}
