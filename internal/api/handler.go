package api

import (
	"context"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/importer"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/geocode"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/imagestore"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/store"
)

// ImportLogLister 导入日志查询（SQLite）
type ImportLogLister interface {
	ListImportLogs(ctx context.Context, sessionID string, limit int) ([]store.ImportLog, error)
}

// Deps 处理器依赖；Geocoder 与 ImportLogs 可为 nil
type Deps struct {
	Coordinator *importer.Coordinator
	Sessions    *dashboard.Registry
	Backend     model.SessionBackend
	Images      *imagestore.Store
	Fetcher     *imagestore.Fetcher
	Geocoder    *geocode.Geocoder
	ImportLogs  ImportLogLister
	Logger      logrus.FieldLogger
	// MaxUploadBytes bounds workbook and image uploads; 0 means 32 MiB.
	MaxUploadBytes int64
	// ExportDir holds streamed exports until they are downloaded; empty means os.TempDir().
	ExportDir string
}

// Handler API 处理器
type Handler struct {
	coordinator *importer.Coordinator
	sessions    *dashboard.Registry
	backend     model.SessionBackend
	images      *imagestore.Store
	fetcher     *imagestore.Fetcher
	geocoder    *geocode.Geocoder
	importLogs  ImportLogLister
	logger      logrus.FieldLogger
	maxUpload   int64
	exportDir   string
	downloads   *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	fetcher := d.Fetcher
	if fetcher == nil && d.Images != nil {
		fetcher = imagestore.NewFetcher(d.Images, nil)
	}
	exportDir := d.ExportDir
	if exportDir == "" {
		exportDir = os.TempDir()
	}
	return &Handler{
		coordinator: d.Coordinator,
		sessions:    d.Sessions,
		backend:     d.Backend,
		images:      d.Images,
		fetcher:     fetcher,
		geocoder:    d.Geocoder,
		importLogs:  d.ImportLogs,
		logger:      logger,
		maxUpload:   maxUpload,
		exportDir:   exportDir,
		downloads:   newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 工作簿上传
	router.POST("/workbook", h.UploadWorkbook)
	router.POST("/workbook/stream", h.UploadWorkbookStream)
	router.DELETE("/workbook", h.ClearWorkbook)
	router.GET("/imports", h.ListImports)

	// 首页与企业
	router.GET("/home", h.GetHome)
	router.GET("/companies", h.ListCompanies)
	router.GET("/companies/:name", h.GetCompany)
	router.GET("/companies/:name/logo", h.GetCompanyLogo)
	router.GET("/companies/:name/location", h.GetCompanyLocation)
	router.GET("/comparison", h.GetComparison)
	router.GET("/radar", h.GetRadar)

	// 解决方案与图片
	router.GET("/solutions", h.ListSolutions)
	router.GET("/solutions/:name", h.GetSolution)
	router.GET("/solutions/:name/images", h.ListSolutionImages)
	router.POST("/solutions/:name/images", h.AddSolutionImages)
	router.DELETE("/solutions/:name/images/:kind/:index", h.DeleteSolutionImage)
	router.GET("/solutions/:name/images/files/:index/thumbnail", h.GetSolutionThumbnail)

	// 对齐表
	router.GET("/alignment", h.GetAlignment)
	router.GET("/alignment/export", h.ExportAlignment)
	router.POST("/alignment/export/stream", h.ExportAlignmentStream)
	router.GET("/alignment/export/download/:token", h.DownloadExport)

	// 地理编码
	router.GET("/geocode", h.Geocode)
}

// snapshot 返回当前会话的快照；没有时写出错误响应
func (h *Handler) snapshot(c *gin.Context) (*dashboard.Snapshot, bool) {
	snap, err := h.sessions.Get(SessionID(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return snap, true
}

func (h *Handler) scoped(c *gin.Context) model.ScopedSession {
	return model.ScopedSession{Backend: h.backend, ID: SessionID(c)}
}

func (h *Handler) requestLogger(c *gin.Context) logrus.FieldLogger {
	return h.logger.WithFields(logrus.Fields{
		"session": SessionID(c),
		"path":    c.FullPath(),
	})
}
