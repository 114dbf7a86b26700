package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	loggerpkg "github.com/Logendranm/wifi-hotspot-system-pro/pkg/logger"
)

const requestBodyLogLimit = 64 << 10 // 64 KiB

// RequestLogger logs each request through zap. Bodies and fields pass
// through the sanitizer so passwords and voucher codes never reach the
// log stream.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()
		requestBody := snapshotRequestBody(c)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("raw_path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startedAt)),
		}

		if len(requestBody) > 0 {
			var payload interface{}
			if err := json.Unmarshal(requestBody, &payload); err == nil {
				fields = append(fields, zap.Any("request_body", payload))
			}
		}

		sanitized := loggerpkg.SanitizeFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http request completed", sanitized...)
		case c.Writer.Status() >= 400:
			logger.Warn("http request completed", sanitized...)
		default:
			logger.Info("http request completed", sanitized...)
		}
	}
}

func snapshotRequestBody(c *gin.Context) []byte {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return nil
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.Request.Body = io.NopCloser(bytes.NewReader(nil))
		return nil
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) <= requestBodyLogLimit {
		return raw
	}
	return raw[:requestBodyLogLimit]
}
