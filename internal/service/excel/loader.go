package excel

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// logoColumns 企业 sheet 中始终执行错误哨兵清洗的列
var logoColumns = []string{parser.ColLogo, parser.ColURL, parser.ColLogoURL}

// LoadOptions 工作簿加载选项
type LoadOptions struct {
	Resolver *parser.SheetResolver
	// SweepAllCells 对所有 sheet 的所有单元格执行错误哨兵清洗
	SweepAllCells bool
	Logger        logrus.FieldLogger
}

// DefaultLoadOptions 默认选项：默认别名、全量清洗
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Resolver:      parser.NewSheetResolver(nil),
		SweepAllCells: true,
	}
}

// ContentKey returns the memoisation key of a workbook blob.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load 解析工作簿字节：解析四个逻辑 sheet、清洗表头与单元格、提取企业 sheet 中的图片。
// 任一 sheet 角色无法解析时整体失败；单张图片失败不影响加载。
func Load(data []byte, opts LoadOptions) (*model.Workbook, error) {
	if opts.Resolver == nil {
		opts.Resolver = parser.NewSheetResolver(nil)
	}
	logger := loggerOrDiscard(opts.Logger)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	available := file.GetSheetList()
	sheets, err := opts.Resolver.ResolveAll(available)
	if err != nil {
		return nil, err
	}

	wb := &model.Workbook{
		ID:           uuid.New().String(),
		ContentKey:   ContentKey(data),
		SheetNames:   available,
		Sheets:       sheets,
		CompanyLogos: make(map[int][]byte),
	}

	for _, role := range model.SheetRoles {
		topts := tableOptions{sweepAll: opts.SweepAllCells}
		if role == model.RoleCompanies {
			topts.sweepColumns = logoColumns
		}
		t, err := readTable(file, sheets[role], topts)
		if err != nil {
			return nil, err
		}
		switch role {
		case model.RoleCompanies:
			wb.Companies = t
		case model.RoleSolutions:
			wb.Solutions = t
		case model.RoleAnalysis:
			wb.Analysis = t
		case model.RoleAlignment:
			wb.Alignment = t
		}
	}

	for sheetRow, png := range ExtractImages(file, sheets[model.RoleCompanies], logger) {
		if idx := DataRowIndex(sheetRow); idx >= 0 {
			wb.CompanyLogos[idx] = png
		}
	}

	logger.WithFields(logrus.Fields{
		"workbook":  wb.ID,
		"companies": wb.Companies.Len(),
		"solutions": wb.Solutions.Len(),
		"alignment": wb.Alignment.Len(),
		"logos":     len(wb.CompanyLogos),
	}).Info("workbook loaded")

	return wb, nil
}
