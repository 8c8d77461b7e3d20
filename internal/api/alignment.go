package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/config"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/exporter"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AlignmentResponse 对齐视图
type AlignmentResponse struct {
	Companies []string                  `json:"companies"`
	Types     []string                  `json:"types"`
	Groups    []*model.RequirementGroup `json:"groups"`
	Total     int                       `json:"total"`
}

// GetAlignment 需求对齐表（按需求类型分组，单元格带徽章）
// GET /api/alignment?type=Base
func (h *Handler) GetAlignment(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if snap.AlignmentErr != nil {
		fail(c, snap.AlignmentErr)
		return
	}
	cube := snap.Alignment
	resp := AlignmentResponse{
		Companies: cube.Companies,
		Types:     cube.Types(),
		Groups:    cube.Groups,
		Total:     cube.Len(),
	}
	if t := c.Query("type"); t != "" {
		g := cube.Group(t)
		if g == nil {
			fail(c, fmt.Errorf("requirement type %q: %w", t, model.ErrNotFound))
			return
		}
		resp.Groups = []*model.RequirementGroup{g}
		resp.Total = len(g.Requirements)
	}
	success(c, resp)
}

// ExportAlignment 直接下载导出的 Excel
// GET /api/alignment/export
func (h *Handler) ExportAlignment(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	f, err := exporter.Export(snap, nil)
	if err != nil {
		config.LogError(h.requestLogger(c), "api", "ExportAlignment", snap.Filename, nil, err)
		failWrite(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", buildExportContentDisposition(snap.Filename))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		config.LogError(h.requestLogger(c), "api", "ExportAlignment", snap.Filename, nil, err)
	}
}

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportAlignmentStream 导出 Excel（SSE 进度 + 完成后提供下载地址）
// POST /api/alignment/export/stream
func (h *Handler) ExportAlignmentStream(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errorResponse(c, CodeInternal, "不支持流式响应")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(exportProgressEvent{
		Type:      "start",
		Message:   "开始导出",
		Data:      map[string]any{"filename": snap.Filename},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	progressFn := func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   p.Stage,
			Data:      map[string]any{"percent": p.Percent},
			Timestamp: time.Now(),
		})
	}

	file, err := exporter.Export(snap, progressFn)
	if err != nil {
		send(exportProgressEvent{
			Type:      "error",
			Message:   "导出失败: " + err.Error(),
			Data:      map[string]any{"code": CodeWriteFailed},
			Timestamp: time.Now(),
		})
		return
	}
	defer file.Close()

	tempPath := filepath.Join(h.exportDir, fmt.Sprintf("vendorlens_export_%d_%d.xlsx", time.Now().UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		send(exportProgressEvent{
			Type:      "error",
			Message:   "写入导出文件失败: " + err.Error(),
			Data:      map[string]any{"code": CodeWriteFailed},
			Timestamp: time.Now(),
		})
		_ = os.Remove(tempPath)
		return
	}

	token := h.downloads.put(tempPath, snap.Filename, SessionID(c), 10*time.Minute)
	send(exportProgressEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/alignment/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/alignment/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok || item.sessionID != SessionID(c) {
		errorResponse(c, CodeNotFound, "下载链接已失效")
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		errorResponse(c, CodeNotFound, "导出文件不存在")
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.source))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}

// buildExportContentDisposition 以源工作簿名命名导出文件
func buildExportContentDisposition(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "evaluation"
	}
	name := base + "-alignement.xlsx"
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", ascii, url.PathEscape(name))
}
