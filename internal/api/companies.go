package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/evaluation"
)

// companyItem 企业列表项
type companyItem struct {
	Name         string                        `json:"name"`
	Headquarters string                        `json:"headquarters,omitempty"`
	GlobalScore  *float64                      `json:"globalScore,omitempty"`
	Scores       map[model.CriterionID]float64 `json:"scores"`
	RadarReady   bool                          `json:"radarReady"`
	HasLogo      bool                          `json:"hasLogo"`
	LogoURL      string                        `json:"logoUrl,omitempty"`
	Website      string                        `json:"website,omitempty"`
	Solutions    int                           `json:"solutions"`
}

func toCompanyItem(m *evaluation.Model, co *model.Company) companyItem {
	_, radarReady := m.RadarVector(co.Name)
	img, logoURL, hasLogo := m.Logo(co.Name)
	item := companyItem{
		Name:         co.Name,
		Headquarters: co.Headquarters,
		GlobalScore:  co.GlobalScore,
		Scores:       co.Scores,
		RadarReady:   radarReady,
		HasLogo:      hasLogo,
		Website:      co.Website,
		Solutions:    len(m.SolutionsOf(co.Name)),
	}
	if len(img) > 0 {
		item.LogoURL = logoPath(co.Name)
	} else {
		item.LogoURL = logoURL
	}
	return item
}

func logoPath(name string) string {
	return "/api/companies/" + url.PathEscape(name) + "/logo"
}

// HomeResponse 首页视图
type HomeResponse struct {
	Filename  string               `json:"filename"`
	Summary   evaluation.Summary   `json:"summary"`
	Companies []companyItem        `json:"companies"`
	Warnings  []evaluation.Warning `json:"warnings"`
}

// GetHome 首页：统计、企业列表与数据质量提示
// GET /api/home
func (h *Handler) GetHome(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	m := snap.Model
	items := make([]companyItem, 0, len(m.Companies()))
	for _, co := range m.Companies() {
		items = append(items, toCompanyItem(m, co))
	}
	warnings := m.Warnings()
	if warnings == nil {
		warnings = []evaluation.Warning{}
	}
	success(c, HomeResponse{
		Filename:  snap.Filename,
		Summary:   m.Summary(),
		Companies: items,
		Warnings:  warnings,
	})
}

// ListCompanies 企业列表
// GET /api/companies?keyword=
func (h *Handler) ListCompanies(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	keyword := strings.ToLower(strings.TrimSpace(c.Query("keyword")))
	items := []companyItem{}
	for _, co := range snap.Model.Companies() {
		if keyword != "" && !strings.Contains(strings.ToLower(co.Name), keyword) {
			continue
		}
		items = append(items, toCompanyItem(snap.Model, co))
	}
	success(c, gin.H{"total": len(items), "items": items})
}

// CompanyDetail 企业详情视图
type CompanyDetail struct {
	companyItem
	Description string                  `json:"description,omitempty"`
	FoundedYear *int                    `json:"foundedYear,omitempty"`
	Employees   *int                    `json:"employees,omitempty"`
	VideoURL    string                  `json:"videoUrl,omitempty"`
	Attributes  []model.Attribute       `json:"attributes"`
	Radar       []evaluation.RadarTrace `json:"radar"`
	Solutions   []*model.Solution       `json:"solutions"`
}

// GetCompany 企业详情
// GET /api/companies/:name
func (h *Handler) GetCompany(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	name := c.Param("name")
	co, found := snap.Model.Company(name)
	if !found {
		fail(c, fmt.Errorf("company %q: %w", name, model.ErrNotFound))
		return
	}
	solutions := snap.Model.SolutionsOf(co.Name)
	if solutions == nil {
		solutions = []*model.Solution{}
	}
	attrs := snap.Model.CompanyAttributes(co.Name)
	if attrs == nil {
		attrs = []model.Attribute{}
	}
	success(c, CompanyDetail{
		companyItem: toCompanyItem(snap.Model, co),
		Description: co.Description,
		FoundedYear: co.FoundedYear,
		Employees:   co.Employees,
		VideoURL:    co.VideoURL,
		Attributes:  attrs,
		Radar:       snap.Model.RadarTraces(co.Name),
		Solutions:   solutions,
	})
}

// GetCompanyLogo 企业 logo：嵌入图片直接返回 PNG，否则重定向到链接
// GET /api/companies/:name/logo
func (h *Handler) GetCompanyLogo(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	name := c.Param("name")
	img, link, found := snap.Model.Logo(name)
	switch {
	case !found:
		fail(c, fmt.Errorf("logo of %q: %w", name, model.ErrNotFound))
	case len(img) > 0:
		c.Header("Cache-Control", "private, max-age=300")
		c.Data(http.StatusOK, "image/png", img)
	default:
		c.Redirect(http.StatusFound, link)
	}
}

// GetCompanyLocation 企业总部坐标（地图视图）
// GET /api/companies/:name/location
func (h *Handler) GetCompanyLocation(c *gin.Context) {
	if h.geocoder == nil {
		errorResponse(c, CodeGeocodeOff, "地理编码未启用")
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	name := c.Param("name")
	co, found := snap.Model.Company(name)
	if !found {
		fail(c, fmt.Errorf("company %q: %w", name, model.ErrNotFound))
		return
	}
	p, ok := h.geocoder.Point(c.Request.Context(), co.Headquarters)
	if !ok {
		errorResponse(c, CodeGeocodeNoMatch, "无法定位该地址")
		return
	}
	success(c, gin.H{"company": co.Name, "address": co.Headquarters, "point": p})
}

// GetComparison 分析 sheet 的评分对比表
// GET /api/comparison
func (h *Handler) GetComparison(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	rows := snap.Model.Comparison()
	if rows == nil {
		rows = []evaluation.ComparisonRow{}
	}
	success(c, gin.H{
		"criteria": snap.Model.Criteria(),
		"rows":     rows,
	})
}

// GetRadar 雷达图数据；不完整的企业不出现
// GET /api/radar?company=A&company=B
func (h *Handler) GetRadar(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	names := c.QueryArray("company")
	success(c, snap.Model.RadarTraces(names...))
}
