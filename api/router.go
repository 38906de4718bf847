package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminTokenHeader = "X-Admin-Token"

type Handlers struct {
	Providers  *ProviderHandler
	Bookings   *BookingHandler
	Calendar   *CalendarHandler
	Webhook    *WebhookHandler
	AdminToken string
}

// NewRouter mounts the health check, the bot webhook (when set) and the
// admin API. The admin group is only mounted when a token is configured.
func NewRouter(h Handlers, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		h.Webhook.Register(router.Group("/bot"))
	}

	if h.AdminToken != "" {
		admin := router.Group("/admin", AdminAuth(h.AdminToken))
		if h.Calendar != nil {
			h.Calendar.Register(admin)
		}
		if h.Providers != nil {
			h.Providers.Register(admin.Group("/providers"))
		}
		if h.Bookings != nil {
			h.Bookings.Register(admin.Group("/bookings"))
		}
	}
	return router
}

func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
