package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"encargate/internal/handlers"
	"encargate/pkg/wompi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordingWebhookService struct {
	events []*wompi.Event
}

func (s *recordingWebhookService) HandleEvent(event *wompi.Event) {
	s.events = append(s.events, event)
}

func newWebhookRouter(svc *recordingWebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := handlers.NewWebhookHandler(svc)
	router.POST("/api/webhooks/wompi/events", handler.HandleWompiEvent)
	return router
}

func TestHandleWompiEvent_AlwaysAcknowledges(t *testing.T) {
	svc := &recordingWebhookService{}
	router := newWebhookRouter(svc)

	body := `{"event":"transaction.updated","data":{"transaction":{"id":"txn-1","status":"APPROVED"}},"timestamp":1700000000,"signature":{"properties":["transaction.id"],"checksum":"ABC"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/wompi/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, svc.events, 1)
}

func TestHandleWompiEvent_HeaderChecksumWins(t *testing.T) {
	svc := &recordingWebhookService{}
	router := newWebhookRouter(svc)

	body := `{"event":"transaction.updated","data":{},"timestamp":1,"signature":{"checksum":"FROM_BODY"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/wompi/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Checksum", "FROM_HEADER")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FROM_HEADER", svc.events[0].Signature.Checksum)
}

func TestHandleWompiEvent_MalformedBodyStill200(t *testing.T) {
	svc := &recordingWebhookService{}
	router := newWebhookRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/wompi/events", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Never a retryable status, and the event never reaches the service.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.events)
}
