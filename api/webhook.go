package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/Domenick1991/barberbooking/internal/transport/bale"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UpdateAcceptor interface {
	Accept(ctx context.Context, upd tgbotapi.Update, sink bale.Sink)
}

// WebhookHandler receives pushed bot updates. The path secret keeps
// strangers from injecting updates.
type WebhookHandler struct {
	acceptor UpdateAcceptor
	sink     bale.Sink
	secret   string
}

func NewWebhookHandler(acceptor UpdateAcceptor, sink bale.Sink, secret string) *WebhookHandler {
	return &WebhookHandler{acceptor: acceptor, sink: sink, secret: secret}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/webhook/:secret", h.receive)
}

func (h *WebhookHandler) receive(c *gin.Context) {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.secret)) != 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.acceptor.Accept(c.Request.Context(), upd, h.sink)
	c.Status(http.StatusOK)
}
