package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 常见自动化客户端的 User-Agent 片段
var botSignatures = []string{
	"bot", "crawler", "spider", "headless", "curl", "python", "axios", "wget",
}

// BotGuard 拒绝空 User-Agent 或命中自动化特征的请求
func BotGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsBot(c.Request.UserAgent()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "bot access blocked", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

// IsBot 判断 User-Agent 是否像自动化客户端
func IsBot(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
