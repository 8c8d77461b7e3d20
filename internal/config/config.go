package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "VENDORLENS_"

// ExportsDir 数据目录下暂存流式导出文件的子目录
const ExportsDir = "exports"

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Session  SessionConfig  `toml:"session"`
	Geocode  GeocodeConfig  `toml:"geocode"`
	Workbook WorkbookConfig `toml:"workbook"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int  `toml:"port" validate:"gte=0,lte=65535"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
	// MaxUploadMB 上传工作簿与图片的大小上限
	MaxUploadMB int `toml:"max_upload_mb" validate:"gte=1,lte=512"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" validate:"required"`
	// UploadsDir is resolved against the working directory.
	UploadsDir string `toml:"uploads_dir" validate:"required"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	Backend      string `toml:"backend" validate:"oneof=memory sqlite redis"`
	RedisAddress string `toml:"redis_address" validate:"required_if=Backend redis"`
	CookieName   string `toml:"cookie_name" validate:"required"`
	TTLHours     int    `toml:"ttl_hours" validate:"gte=0"`
	// MaxSnapshots 内存中保留的会话快照数量
	MaxSnapshots int `toml:"max_snapshots" validate:"gte=1"`
}

// GeocodeConfig 地理编码配置
type GeocodeConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint" validate:"omitempty,url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=1,lte=60"`
	CacheSize      int    `toml:"cache_size" validate:"gte=1"`
}

// WorkbookConfig 工作簿解析配置
type WorkbookConfig struct {
	CacheSize     int    `toml:"cache_size" validate:"gte=1"`
	CriteriaFile  string `toml:"criteria_file"`
	SweepAllCells bool   `toml:"sweep_all_cells"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=json text"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20261,
			DevMode:     false,
			OpenBrowser: true,
			MaxUploadMB: 32,
		},
		Data: DataConfig{
			DataDir:    "data",
			UploadsDir: filepath.Join("uploads", "user_images"),
		},
		Session: SessionConfig{
			Backend:      "sqlite",
			CookieName:   "vendorlens_session",
			TTLHours:     24 * 30,
			MaxSnapshots: 64,
		},
		Geocode: GeocodeConfig{
			Enabled:        true,
			Endpoint:       "https://nominatim.openstreetmap.org/search",
			UserAgent:      "vendorlens/1.0",
			TimeoutSeconds: 5,
			CacheSize:      512,
		},
		Workbook: WorkbookConfig{
			CacheSize:     8,
			SweepAllCells: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// GeocodeTimeout returns the per-lookup timeout.
func (c *AppConfig) GeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutSeconds) * time.Second
}

// SessionTTL 会话过期时间；0 表示不过期
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 加载 .env 与 config.toml（path 为空时使用可执行文件目录），
// 再应用 VENDORLENS_* 环境变量覆盖并校验
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, info, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if err := applyEnv(config); err != nil {
		return nil, info, err
	}
	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// SaveConfig 保存配置到 path
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv 环境变量覆盖
func applyEnv(c *AppConfig) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := flag("DEV_MODE", &c.Server.DevMode); err != nil {
		return err
	}
	if err := flag("OPEN_BROWSER", &c.Server.OpenBrowser); err != nil {
		return err
	}
	str("DATA_DIR", &c.Data.DataDir)
	str("UPLOADS_DIR", &c.Data.UploadsDir)
	str("SESSION_BACKEND", &c.Session.Backend)
	str("REDIS_ADDRESS", &c.Session.RedisAddress)
	if c.Session.RedisAddress == "" {
		// 与其他服务共用的变量名
		if v := strings.TrimSpace(os.Getenv("REDIS_ADDRESS")); v != "" {
			c.Session.RedisAddress = v
		}
	}
	if err := flag("GEOCODE_ENABLED", &c.Geocode.Enabled); err != nil {
		return err
	}
	str("GEOCODE_ENDPOINT", &c.Geocode.Endpoint)
	str("CRITERIA_FILE", &c.Workbook.CriteriaFile)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	return nil
}

// EnsureDataDir 确保数据目录存在，返回其绝对路径
// 相对路径的数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	for _, subdir := range []string{ExportsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}
