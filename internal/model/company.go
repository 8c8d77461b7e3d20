package model

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// Attribute 按工作簿列顺序展示的 (标签, 值) 对
type Attribute struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Company 供应商企业（Entreprises sheet 的一行）
type Company struct {
	Name         string   `json:"name" validate:"required"`
	Row          int      `json:"row"`
	Description  string   `json:"description,omitempty"`
	Headquarters string   `json:"headquarters,omitempty"`
	FoundedYear  *int     `json:"foundedYear,omitempty" validate:"omitempty,gte=1800"`
	Employees    *int     `json:"employees,omitempty" validate:"omitempty,gte=1"`
	GlobalScore  *float64 `json:"globalScore,omitempty" validate:"omitempty,gte=0,lte=5"`

	// Scores holds only the criteria whose cell is present and numeric.
	Scores map[CriterionID]float64 `json:"scores"`

	LogoURL   string `json:"logoUrl,omitempty"`
	LogoImage *Image `json:"-"`
	Website   string `json:"website,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`

	Attributes []Attribute `json:"attributes"`
}

// Solution 企业提供的解决方案（Solutions sheet 的一行）
type Solution struct {
	Name        string      `json:"name" validate:"required"`
	Company     string      `json:"company"`
	Row         int         `json:"row"`
	Description string      `json:"description,omitempty"`
	Website     string      `json:"website,omitempty"`
	VideoURL    string      `json:"videoUrl,omitempty"`
	LogoURL     string      `json:"logoUrl,omitempty"`
	Address     string      `json:"address,omitempty"`
	ImageURLs   []string    `json:"imageUrls,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the company invariants (founding year, head count, score range).
func (c *Company) Validate() error {
	return entityValidator().Struct(c)
}

// Validate checks the solution invariants.
func (s *Solution) Validate() error {
	return entityValidator().Struct(s)
}
