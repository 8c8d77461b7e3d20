// Package evaluation builds the read model behind the dashboard views from a
// loaded workbook: companies, solutions, radar vectors and the comparison grid.
package evaluation

import (
	"strings"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// reservedColumns 不作为属性展示的列
var reservedColumns = []string{
	parser.ColDescription, parser.ColLogoURL, parser.ColVideoURL, parser.ColWebsite, parser.ColWebsiteFR,
}

// companyLogoColumns 企业 sheet 中承载 logo 链接的列，按优先级排列
var companyLogoColumns = []string{parser.ColLogoURL, parser.ColURL, parser.ColLogo}

// solutionImagePrefixes 方案 sheet 中承载图片链接的列名前缀
var solutionImagePrefixes = []string{"Image", "Photo", "Screenshot"}

// addressColumns 方案地址列候选
var addressColumns = []string{"Localisation", "Adresse", "Address", parser.ColHeadquarters}

// ComparisonRow 分析 sheet 中一个企业的评分行
type ComparisonRow struct {
	Company     string                        `json:"company"`
	Scores      map[model.CriterionID]float64 `json:"scores"`
	GlobalScore *float64                      `json:"globalScore,omitempty"`
}

// RadarTrace is one company's complete radar vector with its axis labels.
type RadarTrace struct {
	Company string    `json:"company"`
	Labels  []string  `json:"labels"`
	Values  []float64 `json:"values"`
}

// Summary 首页统计
type Summary struct {
	Companies      int               `json:"companies"`
	Solutions      int               `json:"solutions"`
	CompleteRadars int               `json:"completeRadars"`
	Criteria       []model.Criterion `json:"criteria"`
	Warnings       int               `json:"warnings"`
}

// Model 工作簿快照之上的只读评估模型
type Model struct {
	registry *model.CriteriaRegistry

	companies []*model.Company
	byName    map[string]*model.Company

	solutions      []*model.Solution
	solutionByName map[string]*model.Solution
	byCompany      map[string][]*model.Solution

	comparison []ComparisonRow
	warnings   []Warning
}

// New builds the model. Only a Companies sheet without a company-name column is
// fatal; other structural gaps degrade to warnings.
func New(wb *model.Workbook, registry *model.CriteriaRegistry) (*Model, error) {
	if registry == nil {
		registry = model.DefaultCriteriaRegistry()
	}
	m := &Model{
		registry:       registry,
		byName:         make(map[string]*model.Company),
		solutionByName: make(map[string]*model.Solution),
		byCompany:      make(map[string][]*model.Solution),
	}

	rowCompany, err := m.buildCompanies(wb.Companies, wb.CompanyLogos)
	if err != nil {
		return nil, err
	}
	m.buildSolutions(wb.Solutions, rowCompany)
	m.buildComparison(wb.Analysis)
	return m, nil
}

func nameColumn(t *model.Table) int {
	if i := t.ColumnIndex(parser.ColCompany); i >= 0 {
		return i
	}
	return t.ColumnIndex(parser.ColCompanySingular)
}

// findColumn 返回第一个与任一候选相等的列
func findColumn(t *model.Table, candidates ...string) int {
	for _, c := range candidates {
		for i, h := range t.Headers {
			if parser.MatchAny(h, c) {
				return i
			}
		}
	}
	return -1
}

func cellText(t *model.Table, row, col int) string {
	c := t.Cell(row, col)
	if !c.Present {
		return ""
	}
	return c.Value
}

// criterionColumns 把表头映射到评估维度，同一维度取第一列
func (m *Model) criterionColumns(t *model.Table) map[int]model.CriterionID {
	out := make(map[int]model.CriterionID)
	seen := make(map[model.CriterionID]bool)
	for i, h := range t.Headers {
		c, ok := m.registry.Lookup(h)
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out[i] = c.ID
	}
	return out
}

func scoresOf(t *model.Table, row int, cols map[int]model.CriterionID) map[model.CriterionID]float64 {
	scores := make(map[model.CriterionID]float64, len(cols))
	for col, id := range cols {
		if v, ok := parser.ParseNumber(cellText(t, row, col)); ok {
			scores[id] = v
		}
	}
	return scores
}

func numberPtr(t *model.Table, row, col int) *float64 {
	if v, ok := parser.ParseNumber(cellText(t, row, col)); ok {
		return &v
	}
	return nil
}

func intPtr(t *model.Table, row, col int) *int {
	if v, ok := parser.ParseInt(cellText(t, row, col)); ok {
		return &v
	}
	return nil
}

// attributes 按列顺序收集非空属性，跳过 skip 中的列
func attributes(t *model.Table, row int, skip map[int]bool) []model.Attribute {
	out := []model.Attribute{}
	for col, h := range t.Headers {
		if skip[col] || h == "" || parser.MatchAny(h, reservedColumns...) {
			continue
		}
		if v := cellText(t, row, col); v != "" {
			out = append(out, model.Attribute{Label: h, Value: v})
		}
	}
	return out
}

func (m *Model) buildCompanies(t *model.Table, logos map[int][]byte) (map[int]*model.Company, error) {
	nameCol := nameColumn(t)
	if nameCol < 0 {
		sheet := ""
		if t != nil {
			sheet = t.Sheet
		}
		return nil, &model.ColumnMissingError{Sheet: sheet, Column: parser.ColCompany}
	}

	descCol := findColumn(t, parser.ColDescription)
	hqCol := findColumn(t, parser.ColHeadquarters)
	yearCol := findColumn(t, parser.ColFoundedYear)
	empCol := findColumn(t, parser.ColEmployees)
	globalCol := findColumn(t, model.GlobalScoreColumn)
	logoCol := findColumn(t, companyLogoColumns...)
	webCol := findColumn(t, parser.ColWebsite, parser.ColWebsiteFR)
	videoCol := findColumn(t, parser.ColVideoURL)
	critCols := m.criterionColumns(t)

	skip := map[int]bool{nameCol: true}
	for i, h := range t.Headers {
		if parser.MatchAny(h, companyLogoColumns...) {
			skip[i] = true
		}
	}

	rowCompany := make(map[int]*model.Company)
	for r := 0; r < t.Len(); r++ {
		name := cellText(t, r, nameCol)
		if name == "" {
			continue
		}
		if _, dup := m.byName[name]; dup {
			m.warnings = append(m.warnings, Warning{
				Kind: WarnDuplicateCompany, Entity: name,
				Message: "duplicate company row ignored; the first occurrence is kept",
			})
			continue
		}

		c := &model.Company{
			Name:         name,
			Row:          r,
			Description:  cellText(t, r, descCol),
			Headquarters: cellText(t, r, hqCol),
			FoundedYear:  intPtr(t, r, yearCol),
			Employees:    intPtr(t, r, empCol),
			GlobalScore:  numberPtr(t, r, globalCol),
			Scores:       scoresOf(t, r, critCols),
			Website:      parser.NormalizeURL(cellText(t, r, webCol)),
			VideoURL:     parser.NormalizeURL(cellText(t, r, videoCol)),
			Attributes:   attributes(t, r, skip),
		}
		if logo, ok := logos[r]; ok {
			c.LogoImage = model.EmbeddedImage(name+".png", r, logo)
		} else {
			c.LogoURL = parser.NormalizeURL(cellText(t, r, logoCol))
		}

		m.warnings = append(m.warnings, sanitizeCompany(c)...)
		if w, ok := checkGlobalScore(c, m.vector(c)); ok {
			m.warnings = append(m.warnings, w)
		}

		m.companies = append(m.companies, c)
		m.byName[name] = c
		rowCompany[r] = c
	}
	return rowCompany, nil
}

func solutionNameColumn(t *model.Table) int {
	for i, h := range t.Headers {
		if parser.ContainsFold(h, "solution") {
			return i
		}
	}
	return -1
}

func isImageColumn(header string) bool {
	for _, p := range solutionImagePrefixes {
		if parser.HasPrefixFold(header, p) {
			return true
		}
	}
	return false
}

func (m *Model) buildSolutions(t *model.Table, rowCompany map[int]*model.Company) {
	if t == nil {
		return
	}
	nameCol := solutionNameColumn(t)
	if nameCol < 0 {
		m.warnings = append(m.warnings, Warning{
			Kind: WarnMissingColumn, Entity: t.Sheet,
			Message: "no column containing \"solution\"; solutions are unavailable",
		})
		return
	}

	linkCol := nameColumn(t)
	descCol := findColumn(t, parser.ColDescription)
	webCol := findColumn(t, parser.ColWebsite, parser.ColWebsiteFR)
	videoCol := findColumn(t, parser.ColVideoURL)
	logoCol := findColumn(t, parser.ColLogoURL)
	addrCol := findColumn(t, addressColumns...)

	skip := map[int]bool{nameCol: true}
	if linkCol >= 0 {
		skip[linkCol] = true
	}
	var imageCols []int
	for i, h := range t.Headers {
		if i != nameCol && isImageColumn(h) {
			imageCols = append(imageCols, i)
			skip[i] = true
		}
	}

	for r := 0; r < t.Len(); r++ {
		name := cellText(t, r, nameCol)
		if name == "" {
			continue
		}
		if _, dup := m.solutionByName[name]; dup {
			continue
		}

		var owner *model.Company
		if linkCol >= 0 {
			owner = m.byName[cellText(t, r, linkCol)]
		} else {
			owner = rowCompany[r]
		}

		s := &model.Solution{
			Name:        name,
			Row:         r,
			Description: cellText(t, r, descCol),
			Website:     parser.NormalizeURL(cellText(t, r, webCol)),
			VideoURL:    parser.NormalizeURL(cellText(t, r, videoCol)),
			LogoURL:     parser.NormalizeURL(cellText(t, r, logoCol)),
			Address:     cellText(t, r, addrCol),
			Attributes:  attributes(t, r, skip),
		}
		for _, col := range imageCols {
			if u := parser.NormalizeURL(cellText(t, r, col)); u != "" {
				s.ImageURLs = append(s.ImageURLs, u)
			}
		}

		// 方案自身 sheet 的字段优先，缺失时回退到所属企业
		if owner != nil {
			s.Company = owner.Name
			if s.Address == "" {
				s.Address = owner.Headquarters
			}
			if s.Website == "" {
				s.Website = owner.Website
			}
			m.byCompany[owner.Name] = append(m.byCompany[owner.Name], s)
		} else {
			m.warnings = append(m.warnings, Warning{
				Kind: WarnOrphanSolution, Entity: name,
				Message: "solution is not linked to any company",
			})
		}

		m.solutions = append(m.solutions, s)
		m.solutionByName[name] = s
	}
}

func (m *Model) buildComparison(t *model.Table) {
	if t == nil {
		return
	}
	nameCol := nameColumn(t)
	if nameCol < 0 {
		nameCol = 0
	}
	globalCol := findColumn(t, model.GlobalScoreColumn)
	critCols := m.criterionColumns(t)

	for r := 0; r < t.Len(); r++ {
		name := cellText(t, r, nameCol)
		if name == "" {
			continue
		}
		m.comparison = append(m.comparison, ComparisonRow{
			Company:     name,
			Scores:      scoresOf(t, r, critCols),
			GlobalScore: numberPtr(t, r, globalCol),
		})
	}
}

// vector 按注册顺序返回评分向量；任一维度缺失返回 nil
func (m *Model) vector(c *model.Company) []float64 {
	out := make([]float64, 0, m.registry.Len())
	for _, crit := range m.registry.All() {
		v, ok := c.Scores[crit.ID]
		if !ok {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// Criteria 返回注册的评估维度
func (m *Model) Criteria() []model.Criterion {
	return m.registry.All()
}

// Companies lists companies in workbook order.
func (m *Model) Companies() []*model.Company {
	return append([]*model.Company(nil), m.companies...)
}

// Company 按名称查找企业（名称两端空白被忽略）
func (m *Model) Company(name string) (*model.Company, bool) {
	c, ok := m.byName[strings.TrimSpace(name)]
	return c, ok
}

// RadarVector returns the criterion scores in registry order. It is absent
// unless every criterion cell of the company is present and numeric.
func (m *Model) RadarVector(name string) ([]float64, bool) {
	c, ok := m.Company(name)
	if !ok {
		return nil, false
	}
	v := m.vector(c)
	return v, v != nil
}

// GlobalScore 返回工作簿中存储的全局评分（不重新计算）
func (m *Model) GlobalScore(name string) (float64, bool) {
	c, ok := m.Company(name)
	if !ok || c.GlobalScore == nil {
		return 0, false
	}
	return *c.GlobalScore, true
}

// SolutionsOf lists the solutions of a company in workbook order.
func (m *Model) SolutionsOf(name string) []*model.Solution {
	return append([]*model.Solution(nil), m.byCompany[strings.TrimSpace(name)]...)
}

// Solutions 所有方案（工作簿顺序）
func (m *Model) Solutions() []*model.Solution {
	return append([]*model.Solution(nil), m.solutions...)
}

// Solution looks up a solution by name.
func (m *Model) Solution(name string) (*model.Solution, bool) {
	s, ok := m.solutionByName[strings.TrimSpace(name)]
	return s, ok
}

// CompanyAttributes 企业属性（工作簿列顺序，保留列除外）
func (m *Model) CompanyAttributes(name string) []model.Attribute {
	if c, ok := m.Company(name); ok {
		return c.Attributes
	}
	return nil
}

// SolutionAttributes returns a solution's attributes in column order.
func (m *Model) SolutionAttributes(name string) []model.Attribute {
	if s, ok := m.Solution(name); ok {
		return s.Attributes
	}
	return nil
}

// Logo 返回企业 logo：嵌入图片优先于链接
func (m *Model) Logo(name string) (image []byte, url string, ok bool) {
	c, found := m.Company(name)
	if !found {
		return nil, "", false
	}
	if c.LogoImage != nil && len(c.LogoImage.Data) > 0 {
		return c.LogoImage.Data, "", true
	}
	return nil, c.LogoURL, c.LogoURL != ""
}

// RadarTraces returns the complete radar vectors of the named companies, or of
// every company when names is empty. Incomplete companies are skipped.
func (m *Model) RadarTraces(names ...string) []RadarTrace {
	labels := m.registry.ShortLabels()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}

	out := []RadarTrace{}
	for _, c := range m.companies {
		if len(want) > 0 && !want[c.Name] {
			continue
		}
		v := m.vector(c)
		if v == nil {
			continue
		}
		out = append(out, RadarTrace{Company: c.Name, Labels: labels, Values: v})
	}
	return out
}

// Comparison 分析 sheet 的评分表
func (m *Model) Comparison() []ComparisonRow {
	return append([]ComparisonRow(nil), m.comparison...)
}

// Warnings lists the data quality findings collected while building the model.
func (m *Model) Warnings() []Warning {
	return append([]Warning(nil), m.warnings...)
}

// Summary 首页统计
func (m *Model) Summary() Summary {
	return Summary{
		Companies:      len(m.companies),
		Solutions:      len(m.solutions),
		CompleteRadars: len(m.RadarTraces()),
		Criteria:       m.registry.All(),
		Warnings:       len(m.warnings),
	}
}
