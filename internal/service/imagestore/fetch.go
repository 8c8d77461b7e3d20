package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/disintegration/imaging"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// MaxFetchBytes 远程图片的大小上限
const MaxFetchBytes = 10 << 20

// Fetcher downloads remote images into the store.
type Fetcher struct {
	store  *Store
	client *http.Client
}

// NewFetcher 创建下载器；client 为 nil 时使用 http.DefaultClient
func NewFetcher(store *Store, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{store: store, client: client}
}

// AddFromURL downloads rawURL, checks that it decodes as an image, and stores
// it as a file of the solution (deduplicated by short hash).
func (f *Fetcher) AddFromURL(ctx context.Context, kv SessionStore, solution, rawURL string) (string, error) {
	target := parser.NormalizeURL(rawURL)
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid image url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	if len(data) > MaxFetchBytes {
		return "", fmt.Errorf("image at %s exceeds %d bytes", target, MaxFetchBytes)
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%s is not a supported image: %w", target, err)
	}

	return f.store.AddFile(ctx, kv, solution, Upload{Filename: path.Base(u.Path), Data: data})
}

// Thumbnail 生成指定宽度的 PNG 缩略图（保持宽高比）
func Thumbnail(file string, width int) ([]byte, error) {
	if width <= 0 {
		width = 240
	}
	img, err := imaging.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", file, err)
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
