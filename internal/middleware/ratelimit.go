package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkpay-platform/internal/config"
)

// maxTrackedClients 超过后清空内存限流表
const maxTrackedClients = 10000

// RateLimit 按客户端 IP 限流。配置了 Redis 时使用按分钟的固定窗口，多实例共享计数；
// 否则每个进程内用令牌桶。
func RateLimit(redisClient *redis.Client, limitConfig *config.Limit, logger *zap.SugaredLogger) gin.HandlerFunc {
	if !limitConfig.Enabled || limitConfig.Requests <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var allow func(c *gin.Context) bool
	if redisClient != nil {
		allow = redisWindow(redisClient, limitConfig, logger)
	} else {
		allow = memoryLimiter(limitConfig)
	}

	return func(c *gin.Context) {
		// 跳过特定路径
		for _, path := range limitConfig.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		if !allow(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "请求过于频繁，请稍后再试",
				"code":  "rate_limited",
			})
			return
		}

		c.Next()
	}
}

func memoryLimiter(cfg *config.Limit) func(c *gin.Context) bool {
	burst := int(cfg.Burst)
	if burst <= 0 {
		burst = int(cfg.Requests)
	}
	every := rate.Every(time.Minute / time.Duration(cfg.Requests))

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) bool {
		key := c.ClientIP()

		mu.Lock()
		l, ok := limiters[key]
		if !ok {
			if len(limiters) >= maxTrackedClients {
				limiters = make(map[string]*rate.Limiter)
			}
			l = rate.NewLimiter(every, burst)
			limiters[key] = l
		}
		mu.Unlock()

		return l.Allow()
	}
}

func redisWindow(client *redis.Client, cfg *config.Limit, logger *zap.SugaredLogger) func(c *gin.Context) bool {
	limit := cfg.Requests + cfg.Burst

	return func(c *gin.Context) bool {
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		pipe := client.TxPipeline()
		incr := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, time.Minute)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			// Redis 不可用时放行
			logger.Warnf("限流计数失败: %v", err)
			return true
		}
		return incr.Val() <= limit
	}
}
