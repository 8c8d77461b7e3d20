package model

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CriterionID 评估维度标识
type CriterionID string

const (
	AlignmentWithNeed    CriterionID = "alignment_with_need"
	CompetitiveAdvantage CriterionID = "competitive_advantage"
	TechBusinessMaturity CriterionID = "tech_business_maturity"
	CostAdvantage        CriterionID = "cost_advantage"
	CustomerSatisfaction CriterionID = "customer_satisfaction"
	Accompaniment        CriterionID = "accompaniment"

	// GlobalScore is derived and never user-editable.
	GlobalScore CriterionID = "global_score"
)

// GlobalScoreColumn 全局评分列名（历史拼写 "Score Golbal" 在表头规范化时修正）
const GlobalScoreColumn = "Score Global"

// ScoreMax is the upper bound of every criterion score.
const ScoreMax = 5.0

// Criterion 评估维度：Label 为工作簿列名，Short 为雷达图轴标签
type Criterion struct {
	ID      CriterionID `json:"id" yaml:"id"`
	Label   string      `json:"label" yaml:"label"`
	Short   string      `json:"short" yaml:"short"`
	Aliases []string    `json:"aliases,omitempty" yaml:"aliases"`
}

// Matches reports whether a normalised header designates this criterion.
func (c Criterion) Matches(header string) bool {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, c.Label) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(header, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// DefaultCriteria 内置的六个评估维度
func DefaultCriteria() []Criterion {
	return []Criterion{
		{ID: AlignmentWithNeed, Label: "Alignement avec le besoin", Short: "Alignement"},
		{ID: CompetitiveAdvantage, Label: "Avantage concurrentiel", Short: "Avantage"},
		{ID: TechBusinessMaturity, Label: "Maturité technologique et business", Short: "Maturité",
			Aliases: []string{"Maturité techno & business", "Maturité technologique & business"}},
		{ID: CostAdvantage, Label: "Avantage coût", Short: "Coût",
			Aliases: []string{"Avantage en termes de coût", "Avantage cout"}},
		{ID: CustomerSatisfaction, Label: "Satisfaction client", Short: "Satisfaction",
			Aliases: []string{"Satisfaction clients"}},
		{ID: Accompaniment, Label: "Accompagnement", Short: "Accompagnement"},
	}
}

// CriteriaRegistry 启动时注册的评估维度列表，顺序即雷达向量顺序
type CriteriaRegistry struct {
	items []Criterion
}

type criteriaFile struct {
	Criteria []Criterion `yaml:"criteria"`
}

// NewCriteriaRegistry validates and registers criteria in order.
func NewCriteriaRegistry(items []Criterion) (*CriteriaRegistry, error) {
	if len(items) == 0 {
		return nil, errors.New("criteria registry is empty")
	}
	seen := make(map[CriterionID]struct{}, len(items))
	for _, c := range items {
		if c.ID == "" || strings.TrimSpace(c.Label) == "" {
			return nil, fmt.Errorf("criterion %q: id and label are required", c.ID)
		}
		if c.ID == GlobalScore {
			return nil, fmt.Errorf("criterion %q is derived and cannot be registered", c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("duplicate criterion %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	out := make([]Criterion, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Short == "" {
			out[i].Short = out[i].Label
		}
	}
	return &CriteriaRegistry{items: out}, nil
}

// DefaultCriteriaRegistry returns the built-in six-axis registry.
func DefaultCriteriaRegistry() *CriteriaRegistry {
	r, err := NewCriteriaRegistry(DefaultCriteria())
	if err != nil {
		panic(err)
	}
	return r
}

// LoadCriteriaRegistry 从 YAML 文件加载评估维度；path 为空时使用内置维度
func LoadCriteriaRegistry(path string) (*CriteriaRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCriteriaRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading criteria file: %w", err)
	}
	var f criteriaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing criteria file: %w", err)
	}
	return NewCriteriaRegistry(f.Criteria)
}

// All 返回注册顺序的维度副本
func (r *CriteriaRegistry) All() []Criterion {
	out := make([]Criterion, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of registered criteria.
func (r *CriteriaRegistry) Len() int {
	return len(r.items)
}

// Lookup finds the criterion a header designates.
func (r *CriteriaRegistry) Lookup(header string) (Criterion, bool) {
	for _, c := range r.items {
		if c.Matches(header) {
			return c, true
		}
	}
	return Criterion{}, false
}

// ShortLabels 雷达图轴标签
func (r *CriteriaRegistry) ShortLabels() []string {
	out := make([]string, len(r.items))
	for i, c := range r.items {
		out[i] = c.Short
	}
	return out
}
