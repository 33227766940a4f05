package handler

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the handler's methods onto the §6 endpoint set under
// the /api/v1 prefix. Keeps the teacher's middleware stack (recovery,
// request id, logging, CORS) and route-group structure, renamed to the
// new domain's resources.
func SetupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	v1 := r.Group("/api/v1")

	payment := v1.Group("/payment")
	{
		payment.GET("/pricing", h.GetPricing)
		payment.GET("/inline-config", h.InlineConfig)
		payment.POST("/purchase", h.Purchase)
		payment.POST("/verify/:reference", h.Verify)
		payment.GET("/balance/:user_key", h.GetBalance)
		payment.GET("/balance/:user_key/history", h.GetBalanceHistory)
		payment.GET("/transaction/:reference", h.GetTransaction)
	}

	analyze := v1.Group("/analyze")
	{
		analyze.POST("/:work_item_id", h.Analyze)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
