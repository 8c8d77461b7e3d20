package excel

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// Cache 以内容哈希为键记忆化工作簿加载结果；并发的相同上传只解析一次
type Cache struct {
	opts    LoadOptions
	entries *lru.Cache[string, *model.Workbook]
	group   singleflight.Group
}

// NewCache creates a cache holding at most size parsed workbooks.
func NewCache(size int, opts LoadOptions) (*Cache, error) {
	if size <= 0 {
		size = 8
	}
	entries, err := lru.New[string, *model.Workbook](size)
	if err != nil {
		return nil, fmt.Errorf("create workbook cache: %w", err)
	}
	return &Cache{opts: opts, entries: entries}, nil
}

// Load returns the memoised workbook for data, parsing it on a miss. Failed
// loads are not cached.
func (c *Cache) Load(data []byte) (*model.Workbook, error) {
	key := ContentKey(data)
	if wb, ok := c.entries.Get(key); ok {
		return wb, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if wb, ok := c.entries.Get(key); ok {
			return wb, nil
		}
		wb, err := Load(data, c.opts)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, wb)
		return wb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Workbook), nil
}

// Contains reports whether a workbook with this content key is memoised.
func (c *Cache) Contains(key string) bool {
	return c.entries.Contains(key)
}

// Purge 清空缓存
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of memoised workbooks.
func (c *Cache) Len() int {
	return c.entries.Len()
}
