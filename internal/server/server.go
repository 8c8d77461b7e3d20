package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/api"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/config"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/importer"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/dashboard"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/excel"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/geocode"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/service/imagestore"
	memstore "github.com/magicmaxmagic/qualification-generator-sub000/internal/service/store"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/store"
)

// sessionPurger 支持按 TTL 清理过期会话的后端
type sessionPurger interface {
	PurgeSessions(ctx context.Context, ttl time.Duration) (int64, error)
}

// Server HTTP服务器
type Server struct {
	cfg     *config.AppConfig
	logger  *logrus.Logger
	router  *gin.Engine
	store   *store.Store
	dataDir string
	backend model.SessionBackend
	httpSrv *http.Server
	stop    context.CancelFunc
}

// NewServer 创建服务器：初始化 SQLite、会话后端、图片存储与地理编码
func NewServer(cfg *config.AppConfig, logger *logrus.Logger) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = config.GetLogger()
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}

	// 初始化 SQLite Store（导入日志始终写入 SQLite）
	sqliteStore, err := store.New(filepath.Join(dataDir, "vendorlens.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger, store: sqliteStore, dataDir: dataDir}
	imageOpts := []imagestore.Option{imagestore.WithLogger(logger)}

	switch cfg.Session.Backend {
	case "memory":
		s.backend = memstore.NewMemorySessionStore()
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := store.NewRedisSessionStore(ctx, cfg.Session.RedisAddress, cfg.SessionTTL())
		if err != nil {
			_ = sqliteStore.Close()
			return nil, err
		}
		s.backend = rs
		imageOpts = append(imageOpts, imagestore.WithLocker(rs))
	default:
		s.backend = sqliteStore
	}

	h, err := s.buildHandler(imageOpts)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.router = gin.New()
	s.setupRoutes(h)
	return s, nil
}

func (s *Server) buildHandler(imageOpts []imagestore.Option) (*api.Handler, error) {
	cfg := s.cfg

	criteria, err := model.LoadCriteriaRegistry(cfg.Workbook.CriteriaFile)
	if err != nil {
		return nil, err
	}
	cache, err := excel.NewCache(cfg.Workbook.CacheSize, excel.LoadOptions{
		Resolver:      parser.NewSheetResolver(nil),
		SweepAllCells: cfg.Workbook.SweepAllCells,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, err
	}
	sessions, err := dashboard.NewRegistry(cfg.Session.MaxSnapshots)
	if err != nil {
		return nil, err
	}
	images, err := imagestore.New(cfg.Data.UploadsDir, imageOpts...)
	if err != nil {
		return nil, err
	}

	var geocoder *geocode.Geocoder
	if cfg.Geocode.Enabled {
		provider := geocode.NewNominatimProvider(cfg.Geocode.Endpoint, cfg.Geocode.UserAgent, &http.Client{
			Timeout: cfg.GeocodeTimeout(),
		})
		geocoder, err = geocode.New(provider, geocode.Config{
			Timeout:   cfg.GeocodeTimeout(),
			CacheSize: cfg.Geocode.CacheSize,
			Logger:    s.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return api.NewHandler(api.Deps{
		Coordinator:    importer.NewCoordinator(cache, criteria, sessions, s.store, s.logger),
		Sessions:       sessions,
		Backend:        s.backend,
		Images:         images,
		Geocoder:       geocoder,
		ImportLogs:     s.store,
		Logger:         s.logger,
		MaxUploadBytes: s.cfg.MaxUploadBytes(),
		ExportDir:      filepath.Join(s.dataDir, config.ExportsDir),
	}), nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(h *api.Handler) {
	s.router.Use(gin.Recovery(), requestLogger(s.logger))

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization", api.SessionHeader)
	corsConfig.AddExposeHeaders("Content-Disposition")
	s.router.Use(cors.New(corsConfig))

	// 用户上传的图片
	s.router.Static("/uploads", s.cfg.Data.UploadsDir)

	apiGroup := s.router.Group("/api")
	apiGroup.Use(api.SessionMiddleware(s.cfg.Session.CookieName, s.cfg.SessionTTL()))
	{
		h.RegisterRoutes(apiGroup)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.Response{Code: api.CodeNotFound, Message: "not found"})
	})
}

// requestLogger gin 请求日志（logrus）
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case len(c.Errors) > 0:
			entry.Warn(c.Errors.String())
		default:
			entry.Debug("request")
		}
	}
}

// Handler 返回 HTTP 处理器（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器并开始定期清理过期会话；阻塞直到 Shutdown
func (s *Server) Run(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.purgeLoop(ctx, time.Hour)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close 释放会话后端与数据库
func (s *Server) Close() error {
	var err error
	if s.backend != nil && s.backend != model.SessionBackend(s.store) {
		err = s.backend.Close()
	}
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) purgeLoop(ctx context.Context, every time.Duration) {
	purger, ok := s.backend.(sessionPurger)
	ttl := s.cfg.SessionTTL()
	if !ok || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeSessions(ctx, ttl)
			if err != nil {
				config.LogError(s.logger, "server", "purgeLoop", "purge sessions", nil, err)
				continue
			}
			if n > 0 {
				s.logger.WithField("purged", n).Info("expired sessions purged")
			}
		}
	}
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
