// Package dashboard holds the per-session view snapshot: a parsed workbook
// with its evaluation model and alignment cube.
package dashboard

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/alignment"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/evaluation"
)

// Snapshot 一次上传对应的一致视图数据；创建后只读
type Snapshot struct {
	Filename string
	LoadedAt time.Time
	Workbook *model.Workbook
	Model    *evaluation.Model

	// Alignment is nil when AlignmentErr is set; the other views stay usable.
	Alignment    *model.Cube
	AlignmentErr error
}

// Build 从已加载的工作簿构建快照；对齐 sheet 的结构错误只影响对齐视图
func Build(filename string, wb *model.Workbook, registry *model.CriteriaRegistry) (*Snapshot, error) {
	m, err := evaluation.New(wb, registry)
	if err != nil {
		return nil, fmt.Errorf("build evaluation model: %w", err)
	}
	snap := &Snapshot{
		Filename: filename,
		LoadedAt: time.Now(),
		Workbook: wb,
		Model:    m,
	}
	snap.Alignment, snap.AlignmentErr = alignment.Project(wb.Alignment)
	return snap, nil
}

// Registry maps session ids to their current snapshot. Replacing a snapshot
// is atomic: readers see either the old or the new one.
type Registry struct {
	sessions *lru.Cache[string, *Snapshot]
}

// NewRegistry 创建会话快照表，最多保留 size 个会话
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("create session registry: %w", err)
	}
	return &Registry{sessions: c}, nil
}

// Get returns the session's snapshot or model.ErrNoWorkbook.
func (r *Registry) Get(sessionID string) (*Snapshot, error) {
	if s, ok := r.sessions.Get(sessionID); ok {
		return s, nil
	}
	return nil, model.ErrNoWorkbook
}

// Put 替换会话的当前快照
func (r *Registry) Put(sessionID string, snap *Snapshot) {
	r.sessions.Add(sessionID, snap)
}

// Drop 移除会话快照
func (r *Registry) Drop(sessionID string) {
	r.sessions.Remove(sessionID)
}

// Len returns the number of sessions holding a snapshot.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
