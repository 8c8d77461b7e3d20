package parser

import (
	"strings"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// SheetResolver 按别名列表把逻辑角色映射到物理 sheet 名
type SheetResolver struct {
	aliases map[model.SheetRole][]string
}

// NewSheetResolver 创建解析器；overrides 中的角色替换默认别名列表
func NewSheetResolver(overrides map[model.SheetRole][]string) *SheetResolver {
	aliases := make(map[model.SheetRole][]string, len(DefaultSheetAliases))
	for role, list := range DefaultSheetAliases {
		aliases[role] = append([]string(nil), list...)
	}
	for role, list := range overrides {
		if len(list) > 0 {
			aliases[role] = append([]string(nil), list...)
		}
	}
	return &SheetResolver{aliases: aliases}
}

// Aliases returns the alias list configured for role.
func (r *SheetResolver) Aliases(role model.SheetRole) []string {
	return append([]string(nil), r.aliases[role]...)
}

// Resolve 返回第一个在 available 中出现的别名对应的物理 sheet 名
func (r *SheetResolver) Resolve(role model.SheetRole, available []string) (string, error) {
	return ResolveSheet(role, r.aliases[role], available)
}

// ResolveAll resolves every role in model.SheetRoles; the first failure aborts.
func (r *SheetResolver) ResolveAll(available []string) (map[model.SheetRole]string, error) {
	out := make(map[model.SheetRole]string, len(model.SheetRoles))
	for _, role := range model.SheetRoles {
		name, err := r.Resolve(role, available)
		if err != nil {
			return nil, err
		}
		out[role] = name
	}
	return out, nil
}

// ResolveSheet scans aliases in order and returns the matching entry of available
// verbatim. Both sides are compared trimmed.
func ResolveSheet(role model.SheetRole, aliases, available []string) (string, error) {
	for _, alias := range aliases {
		want := strings.TrimSpace(alias)
		for _, name := range available {
			if strings.TrimSpace(name) == want {
				return name, nil
			}
		}
	}
	return "", &model.SheetNotFoundError{
		Role:      role,
		Aliases:   append([]string(nil), aliases...),
		Available: append([]string(nil), available...),
	}
}
