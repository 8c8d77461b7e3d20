package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/evaluation"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/store"
)

// Event types
const (
	EventStart     = "start"
	EventSheets    = "sheets"
	EventImages    = "images"
	EventModel     = "model"
	EventAlignment = "alignment"
	EventWarning   = "warning"
	EventDone      = "done"
	EventError     = "error"
)

// Recorder 导入日志的持久化（SQLite）
type Recorder interface {
	CreateImportLog(ctx context.Context, sessionID, filename string, fileSize int64, fileHash string) (int64, error)
	InsertSheetMeta(ctx context.Context, meta store.SheetMeta) error
	UpdateImportLog(ctx context.Context, id int64, r store.ImportResult) error
}

// Coordinator 导入协调器：加载工作簿、构建快照并替换会话的当前快照
type Coordinator struct {
	cache    *excel.Cache
	criteria *model.CriteriaRegistry
	sessions *dashboard.Registry
	recorder Recorder
	logger   logrus.FieldLogger
}

// NewCoordinator 创建导入协调器；recorder 可为 nil
func NewCoordinator(cache *excel.Cache, criteria *model.CriteriaRegistry, sessions *dashboard.Registry, recorder Recorder, logger logrus.FieldLogger) *Coordinator {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Coordinator{
		cache:    cache,
		criteria: criteria,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	SessionID string
	Filename  string
	Data      []byte
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ImportReport is the payload of the done event.
type ImportReport struct {
	Filename       string                     `json:"filename"`
	WorkbookID     string                     `json:"workbookId"`
	Sheets         map[model.SheetRole]string `json:"sheets"`
	Companies      int                        `json:"companies"`
	Solutions      int                        `json:"solutions"`
	Requirements   int                        `json:"requirements"`
	Logos          int                        `json:"logos"`
	Warnings       []evaluation.Warning       `json:"warnings"`
	AlignmentError string                     `json:"alignmentError,omitempty"`
	Duration       time.Duration              `json:"duration"`
}

// Import 异步执行导入，返回进度通道；通道在导入结束后关闭
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 32)

	go func() {
		defer close(progressChan)
		_, _ = c.Run(ctx, opts, func(e ProgressEvent) { c.sendProgress(ctx, progressChan, e) })
	}()

	return progressChan
}

// Run imports synchronously, reporting progress through emit (may be nil).
// On success the session's snapshot is replaced.
func (c *Coordinator) Run(ctx context.Context, opts ImportOptions, emit func(ProgressEvent)) (*dashboard.Snapshot, error) {
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	startTime := time.Now()
	logger := c.logger.WithFields(logrus.Fields{"session": opts.SessionID, "filename": opts.Filename})

	emit(event(EventStart, "workbook import started", map[string]interface{}{
		"filename": opts.Filename,
		"size":     len(opts.Data),
	}))

	logID := c.createLog(ctx, opts, logger)

	wb, err := c.cache.Load(opts.Data)
	if err != nil {
		return nil, c.fail(ctx, logID, emit, logger, err)
	}

	emit(event(EventSheets, "sheets resolved", wb.Sheets))
	c.recordSheets(ctx, logID, wb, logger)
	emit(event(EventImages, fmt.Sprintf("%d company logos extracted", len(wb.CompanyLogos)), map[string]int{
		"logos": len(wb.CompanyLogos),
	}))

	snap, err := dashboard.Build(opts.Filename, wb, c.criteria)
	if err != nil {
		return nil, c.fail(ctx, logID, emit, logger, err)
	}

	summary := snap.Model.Summary()
	emit(event(EventModel, "evaluation model built", summary))
	for _, w := range snap.Model.Warnings() {
		emit(event(EventWarning, w.String(), w))
	}

	report := &ImportReport{
		Filename:   opts.Filename,
		WorkbookID: wb.ID,
		Sheets:     wb.Sheets,
		Companies:  summary.Companies,
		Solutions:  summary.Solutions,
		Logos:      len(wb.CompanyLogos),
		Warnings:   snap.Model.Warnings(),
	}
	if snap.AlignmentErr != nil {
		report.AlignmentError = snap.AlignmentErr.Error()
		emit(event(EventWarning, "alignment view unavailable: "+snap.AlignmentErr.Error(), nil))
	} else {
		report.Requirements = snap.Alignment.Len()
		if n := len(snap.Alignment.Malformed); n > 0 {
			for _, m := range snap.Alignment.Malformed {
				logger.WithError(m).Debug("malformed score")
			}
			logger.WithField("malformed_scores", n).Info("unparseable alignment scores mapped to absent")
		}
		emit(event(EventAlignment, fmt.Sprintf("%d requirements projected", report.Requirements), map[string]interface{}{
			"types":        snap.Alignment.Types(),
			"requirements": report.Requirements,
		}))
	}

	if c.sessions != nil {
		c.sessions.Put(opts.SessionID, snap)
	}
	report.Duration = time.Since(startTime)
	c.completeLog(ctx, logID, report, logger)

	logger.WithFields(logrus.Fields{
		"workbook":  wb.ID,
		"companies": report.Companies,
		"duration":  report.Duration.String(),
	}).Info("workbook imported")
	emit(event(EventDone, "import complete", report))
	return snap, nil
}

func event(typ, msg string, data interface{}) ProgressEvent {
	return ProgressEvent{Type: typ, Message: msg, Data: data, Timestamp: time.Now()}
}

func (c *Coordinator) fail(ctx context.Context, logID int64, emit func(ProgressEvent), logger logrus.FieldLogger, err error) error {
	logger.WithError(err).Warn("workbook import failed")
	var data interface{}
	var nf *model.SheetNotFoundError
	if errors.As(err, &nf) {
		data = map[string]interface{}{"role": nf.Role, "available": nf.Available}
	}
	emit(event(EventError, err.Error(), data))
	if c.recorder != nil && logID > 0 {
		if uerr := c.recorder.UpdateImportLog(ctx, logID, store.ImportResult{Status: "error", ErrorMessage: err.Error()}); uerr != nil {
			logger.WithError(uerr).Warn("failed to update import log")
		}
	}
	return err
}

func (c *Coordinator) createLog(ctx context.Context, opts ImportOptions, logger logrus.FieldLogger) int64 {
	if c.recorder == nil {
		return 0
	}
	id, err := c.recorder.CreateImportLog(ctx, opts.SessionID, opts.Filename, int64(len(opts.Data)), excel.ContentKey(opts.Data))
	if err != nil {
		logger.WithError(err).Warn("failed to create import log")
		return 0
	}
	return id
}

func (c *Coordinator) recordSheets(ctx context.Context, logID int64, wb *model.Workbook, logger logrus.FieldLogger) {
	if c.recorder == nil || logID == 0 {
		return
	}
	tables := map[model.SheetRole]*model.Table{
		model.RoleCompanies: wb.Companies,
		model.RoleSolutions: wb.Solutions,
		model.RoleAnalysis:  wb.Analysis,
		model.RoleAlignment: wb.Alignment,
	}
	for _, role := range model.SheetRoles {
		t := tables[role]
		meta := store.SheetMeta{
			ImportLogID:  logID,
			Role:         string(role),
			SheetName:    wb.Sheets[role],
			TotalRows:    t.Len(),
			TotalColumns: t.Width(),
			Columns:      t.Headers,
		}
		if err := c.recorder.InsertSheetMeta(ctx, meta); err != nil {
			logger.WithError(err).WithField("role", role).Warn("failed to record sheet meta")
		}
	}
}

func (c *Coordinator) completeLog(ctx context.Context, logID int64, r *ImportReport, logger logrus.FieldLogger) {
	if c.recorder == nil || logID == 0 {
		return
	}
	err := c.recorder.UpdateImportLog(ctx, logID, store.ImportResult{
		WorkbookID:   r.WorkbookID,
		Companies:    r.Companies,
		Solutions:    r.Solutions,
		Requirements: r.Requirements,
		Logos:        r.Logos,
		Warnings:     len(r.Warnings),
		Status:       "success",
		ErrorMessage: r.AlignmentError,
	})
	if err != nil {
		logger.WithError(err).Warn("failed to update import log")
	}
}

// sendProgress 发送进度事件；消费者断开时丢弃
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, e ProgressEvent) {
	select {
	case ch <- e:
	case <-ctx.Done():
	}
}
