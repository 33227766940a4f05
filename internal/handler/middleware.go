package handler

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"tokencore/pkg/idgen"
)

// requestIDContextKey is where RequestIDMiddleware stashes the id so
// handlers and LoggerMiddleware can read it back without re-deriving it.
const requestIDContextKey = "request_id"

// RequestIDMiddleware assigns every request a snowflake id — the same
// generator reference.go falls back to when crypto/rand is unavailable,
// reused here because it's cheap, monotonic, and collision-free without
// a round trip. A caller tracing an async token.* event back to the HTTP
// call that caused it (the outbox sender and the reconciliation job both
// log on their own schedule, well after the response was written) greps
// for this id across both the request log line and, if it chooses to
// pass it through, its own audit trail. An inbound X-Request-ID is
// honored as-is so a caller's own trace id threads through instead of
// being replaced.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%x", idgen.NextID())
		}
		c.Set(requestIDContextKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs method, path, status, latency, client IP and
// request id for every request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s | request_id=%v",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.MustGet(requestIDContextKey),
		)
	}
}

// RecoveryMiddleware converts a panic into a 500 response instead of
// crashing the process.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
