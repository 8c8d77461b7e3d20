// Package imagestore persists user-supplied solution images on disk and keeps
// a per-session index of them.
package imagestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/parser"
)

// Kind 索引条目类型
type Kind string

const (
	KindURL  Kind = "url"
	KindFile Kind = "file"
)

// maxCollisionSuffix 文件名冲突时的最大后缀
const maxCollisionSuffix = 10000

// SessionStore is the per-session key/value store backing the index.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Upload 用户上传的图片
type Upload struct {
	Filename string
	Data     []byte
}

// Store 用户图片存储：文件写入上传目录，索引写入会话存储
type Store struct {
	dir    string
	prefix string
	now    func() time.Time
	logger logrus.FieldLogger
	locker Locker
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used in file names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger 设置日志
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLocker replaces the in-process locker guarding index updates.
func WithLocker(locker Locker) Option {
	return func(s *Store) { s.locker = locker }
}

// WithPublicPrefix sets the URL prefix under which dir is served.
func WithPublicPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.TrimRight(prefix, "/") }
}

// New 创建存储并确保上传目录存在
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &model.PersistenceIOError{Op: "mkdir", Path: dir, Err: err}
	}
	s := &Store{dir: dir, prefix: "/uploads", now: time.Now, locker: newLocalLocker()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}
	return s, nil
}

// Dir returns the uploads directory.
func (s *Store) Dir() string {
	return s.dir
}

// PublicURL 已存储文件的访问路径
func (s *Store) PublicURL(path string) string {
	return s.prefix + "/" + filepath.Base(path)
}

// Put writes the upload under a fresh name
// "{safe}_{hash8}_{epoch}[_{n}].{ext}" and returns its path relative to the
// working directory when possible. It never overwrites an existing file.
func (s *Store) Put(solution string, up Upload) (string, error) {
	base := fmt.Sprintf("%s_%s_%d", SafeName(solution), ShortHash(up.Data), s.now().Unix())
	ext := Extension(up.Filename)

	for n := 0; n < maxCollisionSuffix; n++ {
		name := base
		if n > 0 {
			name = base + "_" + strconv.Itoa(n)
		}
		path := filepath.Join(s.dir, name+"."+ext)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", &model.PersistenceIOError{Op: "create", Path: path, Err: err}
		}
		if _, err := f.Write(up.Data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", &model.PersistenceIOError{Op: "write", Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", &model.PersistenceIOError{Op: "close", Path: path, Err: err}
		}
		return relativeToWorkdir(path), nil
	}
	return "", &model.PersistenceIOError{Op: "create", Path: filepath.Join(s.dir, base), Err: os.ErrExist}
}

func relativeToWorkdir(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

func (s *Store) readList(ctx context.Context, kv SessionStore, key string) ([]string, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("discarding malformed image index")
		return []string{}, nil
	}
	return list, nil
}

func writeList(ctx context.Context, kv SessionStore, key string, list []string) error {
	if len(list) == 0 {
		return kv.Delete(ctx, key)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, string(data))
}

// ListURLs 返回方案的用户图片链接
func (s *Store) ListURLs(ctx context.Context, kv SessionStore, solution string) ([]string, error) {
	return s.readList(ctx, kv, URLsKey(solution))
}

// ListFiles returns the stored image paths of a solution. Entries that can no
// longer be read are dropped from the index.
func (s *Store) ListFiles(ctx context.Context, kv SessionStore, solution string) ([]string, error) {
	key := FilesKey(solution)
	list, err := s.readList(ctx, kv, key)
	if err != nil {
		return nil, err
	}

	live := make([]string, 0, len(list))
	for _, p := range list {
		if err := readable(p); err != nil {
			s.logger.WithError(&model.PersistenceIOError{Op: "read", Path: p, Err: err}).
				WithField("solution", solution).Warn("dropping unreadable image from index")
			continue
		}
		live = append(live, p)
	}
	if len(live) != len(list) {
		if err := writeList(ctx, kv, key, live); err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", key, err)
		}
	}
	return live, nil
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	return nil
}

// cleanURLs 去除空白与重复，补全协议
func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = parser.NormalizeURL(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func containsHash(paths []string, hash8 string) bool {
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), hash8) {
			return true
		}
	}
	return false
}

// Append replaces the URL list with urls and stores every upload whose short
// hash is not already present in the file index.
func (s *Store) Append(ctx context.Context, kv SessionStore, solution string, urls []string, uploads []Upload) error {
	unlock, err := s.locker.Lock(ctx, "images:"+solution)
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeList(ctx, kv, URLsKey(solution), cleanURLs(urls)); err != nil {
		return fmt.Errorf("write %s: %w", URLsKey(solution), err)
	}
	if len(uploads) == 0 {
		return nil
	}

	files, err := s.ListFiles(ctx, kv, solution)
	if err != nil {
		return err
	}
	existing := len(files)
	for _, up := range uploads {
		if len(up.Data) == 0 || containsHash(files, ShortHash(up.Data)) {
			continue
		}
		path, err := s.Put(solution, up)
		if err != nil {
			s.discard(files[existing:])
			return err
		}
		files = append(files, path)
	}
	added := len(files) - existing
	if added == 0 {
		return nil
	}

	if err := writeList(ctx, kv, FilesKey(solution), files); err != nil {
		s.discard(files[existing:])
		return fmt.Errorf("write %s: %w", FilesKey(solution), err)
	}
	s.logger.WithFields(logrus.Fields{"solution": solution, "added": added}).Info("stored solution images")
	return nil
}

// discard 删除未能写入索引的文件
func (s *Store) discard(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).WithField("path", p).Warn("failed to remove orphaned image")
		}
	}
}

// AddFile 存储单个上传并追加到文件索引（已存在相同内容时返回已有路径）
func (s *Store) AddFile(ctx context.Context, kv SessionStore, solution string, up Upload) (string, error) {
	unlock, err := s.locker.Lock(ctx, "images:"+solution)
	if err != nil {
		return "", err
	}
	defer unlock()

	files, err := s.ListFiles(ctx, kv, solution)
	if err != nil {
		return "", err
	}
	hash8 := ShortHash(up.Data)
	for _, p := range files {
		if strings.Contains(filepath.Base(p), hash8) {
			return p, nil
		}
	}
	path, err := s.Put(solution, up)
	if err != nil {
		return "", err
	}
	return path, writeList(ctx, kv, FilesKey(solution), append(files, path))
}

// Remove drops the entry at index. For files the underlying file is unlinked;
// a file that is already gone is not an error.
func (s *Store) Remove(ctx context.Context, kv SessionStore, solution string, kind Kind, index int) error {
	unlock, err := s.locker.Lock(ctx, "images:"+solution)
	if err != nil {
		return err
	}
	defer unlock()

	var (
		key  string
		list []string
	)
	switch kind {
	case KindURL:
		key = URLsKey(solution)
		list, err = s.ListURLs(ctx, kv, solution)
	case KindFile:
		key = FilesKey(solution)
		list, err = s.ListFiles(ctx, kv, solution)
	default:
		return fmt.Errorf("unknown image kind %q", kind)
	}
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%s index %d: %w", kind, index, model.ErrNotFound)
	}

	removed := list[index]
	list = append(list[:index:index], list[index+1:]...)
	if err := writeList(ctx, kv, key, list); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	if kind == KindFile {
		if err := os.Remove(removed); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(&model.PersistenceIOError{Op: "remove", Path: removed, Err: err}).
				Warn("failed to delete image file")
		}
	}
	return nil
}

// Gallery 合并工作簿链接、用户链接与用户上传文件
func (s *Store) Gallery(ctx context.Context, kv SessionStore, sol *model.Solution) ([]model.Image, error) {
	images := make([]model.Image, 0, len(sol.ImageURLs))
	for _, u := range sol.ImageURLs {
		row := sol.Row
		images = append(images, model.Image{Name: filepath.Base(u), Origin: model.OriginWorkbook, URL: u, AnchorRow: &row})
	}

	urls, err := s.ListURLs(ctx, kv, sol.Name)
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		images = append(images, model.Image{Name: filepath.Base(u), Origin: model.OriginURL, URL: u})
	}

	files, err := s.ListFiles(ctx, kv, sol.Name)
	if err != nil {
		return nil, err
	}
	for _, p := range files {
		img := model.Image{
			Name:   filepath.Base(p),
			Origin: model.OriginUpload,
			Path:   p,
			URL:    s.PublicURL(p),
		}
		if data, err := os.ReadFile(p); err == nil {
			img.Hash = model.ContentHash(data)
		}
		images = append(images, img)
	}
	return images, nil
}
