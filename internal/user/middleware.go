package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ViewerIDKey 是gin上下文中保存已认证用户ID的键。
const ViewerIDKey = "viewerID"

// TokenParser 验证会话令牌并返回用户ID。
type TokenParser interface {
	Parse(raw string) (string, error)
}

// LoadViewerMiddleware 读取Bearer会话令牌（如果有），
// 并将用户ID存入上下文。匿名请求直接放行，
// 验证失败的令牌会被拒绝。
func LoadViewerMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed Authorization header"})
			return
		}
		userID, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		c.Set(ViewerIDKey, userID)
		c.Next()
	}
}

// RequireViewer 拒绝没有已认证用户的请求。
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// ViewerID 返回已认证用户的ID，匿名请求返回 ""。
func ViewerID(c *gin.Context) string {
	return c.GetString(ViewerIDKey)
}
