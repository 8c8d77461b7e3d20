package alignment

import (
	"strings"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// BaseType 二元徽章域对应的需求类型
const BaseType = "Base"

// IsBase reports whether a requirement type uses the binary yes/no domain.
func IsBase(reqType string) bool {
	return strings.TrimSpace(reqType) == BaseType
}

// Badge 对 (需求类型, 评分) 分类；超出取值域的评分返回 BadgeNone
func Badge(reqType string, score *int) model.BadgeToken {
	if score == nil {
		return model.BadgeNone
	}
	if IsBase(reqType) {
		switch *score {
		case 0:
			return model.BadgeNo
		case 1:
			return model.BadgeYes
		}
		return model.BadgeNone
	}
	switch *score {
	case 0:
		return model.BadgeZero
	case 1:
		return model.BadgeOne
	case 2:
		return model.BadgeTwo
	case 3:
		return model.BadgeThree
	}
	return model.BadgeNone
}
