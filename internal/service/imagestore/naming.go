package imagestore

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// ShortHashLen 文件名中内容哈希前缀的长度
const ShortHashLen = 8

// ContentHash returns the full hex MD5 of data.
func ContentHash(data []byte) string {
	return model.ContentHash(data)
}

// ShortHash 内容哈希的前 8 位，用于同一方案内去重
func ShortHash(data []byte) string {
	return ContentHash(data)[:ShortHashLen]
}

// SafeName 清洗方案名：保留字母数字与 -_，空格替换为 _，为空时使用 "solution"
func SafeName(solution string) string {
	var b strings.Builder
	for _, r := range solution {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ' ' {
			b.WriteRune(r)
		}
	}
	safe := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if safe == "" {
		return "solution"
	}
	return safe
}

// Extension returns the lowercased alphanumeric tail of a file name, or "jpg".
func Extension(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	var b strings.Builder
	for _, r := range strings.ToLower(ext) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "jpg"
	}
	return b.String()
}

// URLsKey / FilesKey 会话存储中的索引键
func URLsKey(solution string) string  { return "solution_images_urls_" + solution }
func FilesKey(solution string) string { return "solution_images_files_" + solution }
