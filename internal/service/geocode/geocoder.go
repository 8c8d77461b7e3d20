// Package geocode resolves free-form addresses to coordinates behind a
// memoising, failure-tolerant facade.
package geocode

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// ErrNoResult is returned by providers when an address matches nothing.
var ErrNoResult = errors.New("no result")

// DefaultTimeout 单次查询超时
const DefaultTimeout = 5 * time.Second

// Provider 外部地理编码服务
type Provider interface {
	Lookup(ctx context.Context, address string) (lat, lon float64, err error)
}

// Point 坐标
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type result struct {
	point Point
	ok    bool
}

// Geocoder memoises provider lookups keyed by the trimmed address. Failed
// lookups are memoised as absent too.
type Geocoder struct {
	provider Provider
	timeout  time.Duration
	cache    *lru.Cache[string, result]
	group    singleflight.Group
	logger   logrus.FieldLogger
}

// Config 地理编码配置
type Config struct {
	Timeout   time.Duration
	CacheSize int
	Logger    logrus.FieldLogger
}

// New 创建地理编码门面
func New(provider Provider, cfg Config) (*Geocoder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	cache, err := lru.New[string, result](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Geocoder{provider: provider, timeout: cfg.Timeout, cache: cache, logger: logger}, nil
}

// Geocode returns the coordinates of address. Any provider failure, timeout
// or empty address yields ok == false; it never returns an error.
func (g *Geocoder) Geocode(ctx context.Context, address string) (lat, lon float64, ok bool) {
	key := strings.TrimSpace(address)
	if key == "" {
		return 0, 0, false
	}
	if r, hit := g.cache.Get(key); hit {
		return r.point.Lat, r.point.Lon, r.ok
	}

	v, _, _ := g.group.Do(key, func() (interface{}, error) {
		if r, hit := g.cache.Get(key); hit {
			return r, nil
		}
		// 查询与调用方的取消解耦，否则客户端断开会被缓存为"未找到"；单次超时仍然生效
		r := g.lookup(context.WithoutCancel(ctx), key)
		g.cache.Add(key, r)
		return r, nil
	})
	r := v.(result)
	return r.point.Lat, r.point.Lon, r.ok
}

// Point 是 Geocode 的结构化形式
func (g *Geocoder) Point(ctx context.Context, address string) (*Point, bool) {
	lat, lon, ok := g.Geocode(ctx, address)
	if !ok {
		return nil, false
	}
	return &Point{Lat: lat, Lon: lon}, true
}

func (g *Geocoder) lookup(ctx context.Context, address string) result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	lat, lon, err := g.provider.Lookup(ctx, address)
	if err != nil {
		gerr := &model.GeocodingError{Address: address, Err: err}
		entry := g.logger.WithError(gerr)
		if errors.Is(err, ErrNoResult) {
			entry.Info("address not found")
		} else {
			entry.Warn("geocoding failed")
		}
		return result{}
	}
	return result{point: Point{Lat: lat, Lon: lon}, ok: true}
}

// Purge 清空缓存
func (g *Geocoder) Purge() {
	g.cache.Purge()
}
