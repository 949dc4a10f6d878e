package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	// これより遅いリクエストはWarnで記録する
	slowRequestThreshold = 2 * time.Second
)

// requestID は各リクエストにIDを付与する
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger はリクエストの結果を構造化ログに記録する
func requestLogger(log *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", elapsed),
			slog.String("client_ip", c.ClientIP()),
			slog.String(requestIDKey, c.GetString(requestIDKey)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("リクエストの処理に失敗しました", attrs...)
		case elapsed > slowRequestThreshold && !isStreaming(c):
			log.Warn("リクエストの処理に時間がかかりました", attrs...)
		default:
			log.Debug("リクエストを処理しました", attrs...)
		}
	}
}

// isStreaming は長時間接続のエンドポイントかを返す
func isStreaming(c *gin.Context) bool {
	switch c.FullPath() {
	case "/api/camera/stream", "/api/booth/ws":
		return true
	}
	return false
}
