package model

import (
	"crypto/md5"
	"encoding/hex"
)

// ImageOrigin 图片来源
type ImageOrigin string

const (
	OriginWorkbook ImageOrigin = "embedded"
	OriginUpload   ImageOrigin = "user-uploaded"
	OriginURL      ImageOrigin = "user-url"
)

// Image 内容寻址的图片
type Image struct {
	Name   string      `json:"name"`
	Origin ImageOrigin `json:"origin"`
	// Hash is the full hex content hash; file names expose only its prefix.
	Hash string `json:"hash,omitempty"`
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
	// AnchorRow is the data row an embedded image or workbook link belongs to.
	AnchorRow *int   `json:"anchorRow,omitempty"`
	Data      []byte `json:"-"`
}

// ContentHash returns the full hex MD5 of data.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// EmbeddedImage 工作簿中锚定在数据行 row 的图片
func EmbeddedImage(name string, row int, data []byte) *Image {
	return &Image{
		Name:      name,
		Origin:    OriginWorkbook,
		Hash:      ContentHash(data),
		AnchorRow: &row,
		Data:      data,
	}
}
