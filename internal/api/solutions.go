package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/config"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/imagestore"
)

// ListSolutions 解决方案列表
// GET /api/solutions?company=
func (h *Handler) ListSolutions(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	var list []*model.Solution
	if company := strings.TrimSpace(c.Query("company")); company != "" {
		list = snap.Model.SolutionsOf(company)
	} else {
		list = snap.Model.Solutions()
	}
	if list == nil {
		list = []*model.Solution{}
	}
	success(c, list)
}

func (h *Handler) solution(c *gin.Context) (*model.Solution, bool) {
	snap, ok := h.snapshot(c)
	if !ok {
		return nil, false
	}
	name := c.Param("name")
	sol, found := snap.Model.Solution(name)
	if !found {
		fail(c, fmt.Errorf("solution %q: %w", name, model.ErrNotFound))
		return nil, false
	}
	return sol, true
}

// GetSolution 解决方案详情（含图片集）
// GET /api/solutions/:name
func (h *Handler) GetSolution(c *gin.Context) {
	sol, ok := h.solution(c)
	if !ok {
		return
	}
	gallery, err := h.images.Gallery(c.Request.Context(), h.scoped(c), sol)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{
		"solution": sol,
		"images":   gallery,
	})
}

// ListSolutionImages 图片集：工作簿链接、用户链接、用户上传
// GET /api/solutions/:name/images
func (h *Handler) ListSolutionImages(c *gin.Context) {
	sol, ok := h.solution(c)
	if !ok {
		return
	}
	gallery, err := h.images.Gallery(c.Request.Context(), h.scoped(c), sol)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gallery)
}

// AddSolutionImages 添加图片
// POST /api/solutions/:name/images (multipart)
//
//	files: 上传文件（按内容去重）
//	urls:  替换用户链接列表（每行一个，可重复字段）
//	fetch: 下载远程图片并按文件保存
func (h *Handler) AddSolutionImages(c *gin.Context) {
	sol, ok := h.solution(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, CodeInvalidUpload, "无效的表单数据")
		return
	}

	uploads := make([]imagestore.Upload, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			errorResponse(c, CodeInvalidUpload, "读取上传文件失败")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			errorResponse(c, CodeInvalidUpload, "读取上传文件失败")
			return
		}
		uploads = append(uploads, imagestore.Upload{Filename: fh.Filename, Data: data})
	}

	ctx := c.Request.Context()
	kv := h.scoped(c)
	logger := h.requestLogger(c)

	urls, hasURLs := form.Value["urls"]
	if !hasURLs {
		// 未提交链接字段时保留现有链接
		urls, err = h.images.ListURLs(ctx, kv, sol.Name)
		if err != nil {
			fail(c, err)
			return
		}
	} else {
		urls = splitLines(urls)
	}
	if err := h.images.Append(ctx, kv, sol.Name, urls, uploads); err != nil {
		config.LogError(logger, "api", "AddSolutionImages", sol.Name, len(uploads), err)
		failWrite(c, err)
		return
	}

	var fetchErrors []string
	for _, raw := range splitLines(form.Value["fetch"]) {
		if _, err := h.fetcher.AddFromURL(ctx, kv, sol.Name, raw); err != nil {
			config.LogError(logger, "api", "AddSolutionImages", sol.Name, raw, err)
			fetchErrors = append(fetchErrors, err.Error())
		}
	}

	gallery, err := h.images.Gallery(ctx, kv, sol)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"images": gallery, "fetchErrors": fetchErrors})
}

func splitLines(values []string) []string {
	var out []string
	for _, v := range values {
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// DeleteSolutionImage 删除图片（kind: url | file）
// DELETE /api/solutions/:name/images/:kind/:index
func (h *Handler) DeleteSolutionImage(c *gin.Context) {
	sol, ok := h.solution(c)
	if !ok {
		return
	}
	kind := imagestore.Kind(c.Param("kind"))
	if kind != imagestore.KindURL && kind != imagestore.KindFile {
		errorResponse(c, CodeBadRequest, "参数错误")
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		errorResponse(c, CodeBadRequest, "参数错误")
		return
	}
	if err := h.images.Remove(c.Request.Context(), h.scoped(c), sol.Name, kind, index); err != nil {
		failWrite(c, err)
		return
	}
	success(c, nil)
}

// GetSolutionThumbnail 上传图片的缩略图
// GET /api/solutions/:name/images/files/:index/thumbnail?width=240
func (h *Handler) GetSolutionThumbnail(c *gin.Context) {
	sol, ok := h.solution(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		errorResponse(c, CodeBadRequest, "参数错误")
		return
	}
	width, err := strconv.Atoi(c.DefaultQuery("width", "240"))
	if err != nil || width <= 0 || width > 2048 {
		errorResponse(c, CodeBadRequest, "参数错误")
		return
	}
	files, err := h.images.ListFiles(c.Request.Context(), h.scoped(c), sol.Name)
	if err != nil {
		fail(c, err)
		return
	}
	if index < 0 || index >= len(files) {
		fail(c, fmt.Errorf("file index %d: %w", index, model.ErrNotFound))
		return
	}
	data, err := imagestore.Thumbnail(files[index], width)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
