package model

// BadgeToken 与展示无关的评分徽章
type BadgeToken string

const (
	BadgeNone  BadgeToken = "none"
	BadgeNo    BadgeToken = "no"
	BadgeYes   BadgeToken = "yes"
	BadgeZero  BadgeToken = "zero"
	BadgeOne   BadgeToken = "one"
	BadgeTwo   BadgeToken = "two"
	BadgeThree BadgeToken = "three"
)

// AlignmentCell (需求, 企业) 对应的评分与说明；nil 表示缺失
type AlignmentCell struct {
	Score         *int       `json:"score"`
	Justification *string    `json:"justification"`
	Badge         BadgeToken `json:"badge"`
}

// JustificationText renders an absent justification as the empty string.
func (c AlignmentCell) JustificationText() string {
	if c.Justification == nil {
		return ""
	}
	return *c.Justification
}

// Requirement 对齐表中的一条需求
type Requirement struct {
	Type  string                   `json:"type"`
	Text  string                   `json:"text"`
	Cells map[string]AlignmentCell `json:"cells"`
}

// RequirementGroup 同一需求类型下的需求，保持工作簿顺序
type RequirementGroup struct {
	Type         string         `json:"type"`
	Requirements []*Requirement `json:"requirements"`
}

// Cube (需求类型, 需求, 企业) → 评分单元
type Cube struct {
	Companies []string            `json:"companies"`
	Groups    []*RequirementGroup `json:"groups"`

	// Malformed lists score cells that were present but not numeric.
	Malformed []*MalformedScoreError `json:"-"`
}

// Group returns the group of a requirement type, or nil.
func (c *Cube) Group(reqType string) *RequirementGroup {
	for _, g := range c.Groups {
		if g.Type == reqType {
			return g
		}
	}
	return nil
}

// Types 需求类型（首次出现顺序）
func (c *Cube) Types() []string {
	out := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		out[i] = g.Type
	}
	return out
}

// Requirement looks up a requirement by type and text.
func (c *Cube) Requirement(reqType, text string) *Requirement {
	g := c.Group(reqType)
	if g == nil {
		return nil
	}
	for _, r := range g.Requirements {
		if r.Text == text {
			return r
		}
	}
	return nil
}

// Cell 返回单元格；需求或企业不存在时 ok 为 false
func (c *Cube) Cell(reqType, text, company string) (AlignmentCell, bool) {
	r := c.Requirement(reqType, text)
	if r == nil {
		return AlignmentCell{}, false
	}
	cell, ok := r.Cells[company]
	return cell, ok
}

// Len returns the total number of requirements across groups.
func (c *Cube) Len() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Requirements)
	}
	return n
}
