package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/config"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/importer"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/evaluation"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/store"
)

// StatusResponse 会话状态
type StatusResponse struct {
	SessionID      string                     `json:"sessionId"`
	Loaded         bool                       `json:"loaded"`
	Filename       string                     `json:"filename,omitempty"`
	LoadedAt       *time.Time                 `json:"loadedAt,omitempty"`
	WorkbookID     string                     `json:"workbookId,omitempty"`
	Sheets         map[model.SheetRole]string `json:"sheets,omitempty"`
	Summary        *evaluation.Summary        `json:"summary,omitempty"`
	AlignmentError string                     `json:"alignmentError,omitempty"`
	GeocodeEnabled bool                       `json:"geocodeEnabled"`
}

// GetStatus 获取会话状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		SessionID:      SessionID(c),
		GeocodeEnabled: h.geocoder != nil,
	}
	snap, err := h.sessions.Get(resp.SessionID)
	if err != nil {
		success(c, resp)
		return
	}
	summary := snap.Model.Summary()
	loadedAt := snap.LoadedAt
	resp.Loaded = true
	resp.Filename = snap.Filename
	resp.LoadedAt = &loadedAt
	resp.WorkbookID = snap.Workbook.ID
	resp.Sheets = snap.Workbook.Sheets
	resp.Summary = &summary
	if snap.AlignmentErr != nil {
		resp.AlignmentError = snap.AlignmentErr.Error()
	}
	success(c, resp)
}

// readUpload 读取 multipart 中的 file 字段
func (h *Handler) readUpload(c *gin.Context) (importer.ImportOptions, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, CodeInvalidUpload, "未找到上传文件")
		return importer.ImportOptions{}, false
	}
	f, err := fh.Open()
	if err != nil {
		errorResponse(c, CodeInvalidUpload, "读取上传文件失败")
		return importer.ImportOptions{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		errorResponse(c, CodeInvalidUpload, "读取上传文件失败")
		return importer.ImportOptions{}, false
	}
	return importer.ImportOptions{
		SessionID: SessionID(c),
		Filename:  fh.Filename,
		Data:      data,
	}, true
}

// UploadWorkbook 上传工作簿并替换会话快照
// POST /api/workbook
func (h *Handler) UploadWorkbook(c *gin.Context) {
	opts, ok := h.readUpload(c)
	if !ok {
		return
	}

	var report *importer.ImportReport
	_, err := h.coordinator.Run(c.Request.Context(), opts, func(e importer.ProgressEvent) {
		if r, ok := e.Data.(*importer.ImportReport); ok && e.Type == importer.EventDone {
			report = r
		}
	})
	if err != nil {
		config.LogError(h.requestLogger(c), "api", "UploadWorkbook", opts.Filename, nil, err)
		fail(c, err)
		return
	}
	success(c, report)
}

// UploadWorkbookStream 上传工作簿 (SSE 流式响应)
// POST /api/workbook/stream
func (h *Handler) UploadWorkbookStream(c *gin.Context) {
	opts, ok := h.readUpload(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errorResponse(c, CodeInternal, "不支持流式响应")
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	for event := range h.coordinator.Import(c.Request.Context(), opts) {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// ClearWorkbook 丢弃会话的当前快照
// DELETE /api/workbook
func (h *Handler) ClearWorkbook(c *gin.Context) {
	h.sessions.Drop(SessionID(c))
	success(c, nil)
}

// ListImports 会话的导入历史
// GET /api/imports?limit=20
func (h *Handler) ListImports(c *gin.Context) {
	if h.importLogs == nil {
		success(c, []store.ImportLog{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		errorResponse(c, CodeBadRequest, "参数错误")
		return
	}
	logs, err := h.importLogs.ListImportLogs(c.Request.Context(), SessionID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	if logs == nil {
		logs = []store.ImportLog{}
	}
	success(c, logs)
}
