package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Geocode 地址转坐标；失败时返回 CodeGeocodeNoMatch，页面继续渲染
// GET /api/geocode?address=
func (h *Handler) Geocode(c *gin.Context) {
	if h.geocoder == nil {
		errorResponse(c, CodeGeocodeOff, "地理编码未启用")
		return
	}
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		errorResponse(c, CodeBadRequest, "缺少 address")
		return
	}
	p, ok := h.geocoder.Point(c.Request.Context(), address)
	if !ok {
		errorResponse(c, CodeGeocodeNoMatch, "无法定位该地址")
		return
	}
	success(c, gin.H{"address": address, "point": p})
}
