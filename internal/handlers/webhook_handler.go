package handlers

import (
	"net/http"

	"encargate/internal/services"
	"encargate/pkg/wompi"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	webhookService services.WebhookService
}

func NewWebhookHandler(webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandleWompiEvent ingests a gateway webhook. The response is always 200:
// Wompi retries on any other status and a rejected event will not become
// valid on retry.
func (h *WebhookHandler) HandleWompiEvent(c *gin.Context) {
	var event wompi.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "malformed payload"})
		return
	}

	// The checksum header takes precedence over the one embedded in the body.
	if checksum := c.GetHeader("X-Event-Checksum"); checksum != "" {
		event.Signature.Checksum = checksum
	}

	h.webhookService.HandleEvent(&event)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
