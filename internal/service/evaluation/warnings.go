package evaluation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// GlobalScoreTolerance 存储的全局评分与六项均值之间允许的偏差
const GlobalScoreTolerance = 0.05

var globalScoreTolerance = decimal.NewFromFloat(GlobalScoreTolerance)

// WarningKind 校验警告类别
type WarningKind string

const (
	WarnGlobalScoreMismatch WarningKind = "global_score_mismatch"
	WarnInvalidValue        WarningKind = "invalid_value"
	WarnDuplicateCompany    WarningKind = "duplicate_company"
	WarnMissingColumn       WarningKind = "missing_column"
	WarnOrphanSolution      WarningKind = "orphan_solution"
)

// Warning is a non-fatal data quality finding. Warnings never block a view.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Entity  string      `json:"entity"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Entity == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Entity, w.Message)
}

// checkGlobalScore 对比存储的全局评分与重新计算的均值；全局评分本身不被改写
func checkGlobalScore(c *model.Company, vector []float64) (Warning, bool) {
	if c.GlobalScore == nil || vector == nil {
		return Warning{}, false
	}
	// decimal keeps a difference of exactly the tolerance on the accepted side
	sum := decimal.Zero
	for _, v := range vector {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(vector))))
	stored := decimal.NewFromFloat(*c.GlobalScore)
	if mean.Sub(stored).Abs().LessThanOrEqual(globalScoreTolerance) {
		return Warning{}, false
	}
	return Warning{
		Kind:    WarnGlobalScoreMismatch,
		Entity:  c.Name,
		Message: fmt.Sprintf("stored global score %s differs from criteria mean %s", stored.StringFixed(2), mean.StringFixed(2)),
	}, true
}

// sanitizeCompany 校验企业字段，越界的可选字段被清空并产生警告；全局评分原样保留，只产生警告
func sanitizeCompany(c *model.Company) []Warning {
	err := c.Validate()
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Warning{{Kind: WarnInvalidValue, Entity: c.Name, Message: err.Error()}}
	}

	var out []Warning
	for _, fe := range verrs {
		switch fe.Field() {
		case "FoundedYear":
			c.FoundedYear = nil
		case "Employees":
			c.Employees = nil
		}
		out = append(out, Warning{
			Kind:    WarnInvalidValue,
			Entity:  c.Name,
			Message: fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()),
		})
	}
	return out
}
