package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionContextKey = "sessionID"
	// SessionHeader lets non-browser clients pin a session without cookies.
	SessionHeader = "X-Session-ID"
)

// SessionMiddleware 为每个客户端分配会话 ID（uuid），写入 cookie
func SessionMiddleware(cookieName string, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if !validSessionID(id) {
			id, _ = c.Cookie(cookieName)
		}
		if !validSessionID(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, id, int(maxAge.Seconds()), "/", "", false, true)
		}
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// SessionID 当前请求的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
