package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// 业务错误码
const (
	CodeOK             = 0
	CodeBadRequest     = 1001
	CodeInvalidUpload  = 1002
	CodeSheetNotFound  = 2001
	CodeColumnMissing  = 2002
	CodeWriteFailed    = 3001
	CodeNoWorkbook     = 4001
	CodeNotFound       = 4004
	CodeInternal       = 5000
	CodeGeocodeOff     = 5001
	CodeGeocodeNoMatch = 5002
)

// Response 通用响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func errorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// sheetNotFoundData 供前端展示可用 sheet 列表
func sheetNotFoundData(e *model.SheetNotFoundError) gin.H {
	return gin.H{
		"role":      e.Role,
		"aliases":   e.Aliases,
		"available": e.Available,
	}
}

// fail 将领域错误映射为响应码
func fail(c *gin.Context, err error) {
	var (
		sheetErr  *model.SheetNotFoundError
		columnErr *model.ColumnMissingError
		ioErr     *model.PersistenceIOError
	)
	switch {
	case errors.As(err, &sheetErr):
		errorWithData(c, CodeSheetNotFound, err.Error(), sheetNotFoundData(sheetErr))
	case errors.Is(err, model.ErrPivotMissing), errors.As(err, &columnErr):
		errorResponse(c, CodeColumnMissing, err.Error())
	case errors.Is(err, model.ErrNoWorkbook):
		errorResponse(c, CodeNoWorkbook, "请先上传工作簿")
	case errors.Is(err, model.ErrNotFound):
		errorResponse(c, CodeNotFound, err.Error())
	case errors.As(err, &ioErr):
		errorResponse(c, CodeWriteFailed, err.Error())
	default:
		errorResponse(c, CodeInternal, err.Error())
	}
}

// failWrite 写操作失败：除不存在外一律视为写入失败
func failWrite(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrNoWorkbook) {
		fail(c, err)
		return
	}
	errorResponse(c, CodeWriteFailed, err.Error())
}
