package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JayStevency/livekit-msa-server/backend/internal/cache"
)

// RateLimit：按客户端 IP 的固定窗口限流。
// 限流器自身出错时放行（限流是保护手段，不能变成故障点）。
func RateLimit(c *cache.Cache, limit int, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, err := c.CheckRateLimit(ctx.Request.Context(), "ip:"+ctx.ClientIP(), limit, window)
		if err != nil {
			log.Printf("ratelimit: check failed for %s: %v", ctx.ClientIP(), err)
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		ctx.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		ctx.Next()
	}
}
