package services

import (
	"errors"
	"log"

	"encargate/internal/metrics"
	"encargate/internal/repository"
	"encargate/pkg/wompi"

	"gorm.io/gorm"
)

// ChecksumVerifier validates the signature of an inbound gateway event.
type ChecksumVerifier interface {
	VerifyEventChecksum(event *wompi.Event, receivedChecksum string) bool
}

// WebhookService processes inbound gateway events. HandleEvent never returns
// an error: the gateway retries on non-2xx responses and a malformed or
// unverifiable event will not get better on retry, so every outcome is
// acknowledged and the failure is logged instead.
type WebhookService interface {
	HandleEvent(event *wompi.Event)
}

type webhookService struct {
	orderService OrderService
	orderRepo    repository.OrderRepository
	verifier     ChecksumVerifier
	metrics      *metrics.PaymentMetrics
}

func NewWebhookService(
	orderService OrderService,
	orderRepo repository.OrderRepository,
	verifier ChecksumVerifier,
	paymentMetrics *metrics.PaymentMetrics,
) WebhookService {
	return &webhookService{
		orderService: orderService,
		orderRepo:    orderRepo,
		verifier:     verifier,
		metrics:      paymentMetrics,
	}
}

func (s *webhookService) HandleEvent(event *wompi.Event) {
	if !s.verifier.VerifyEventChecksum(event, event.Signature.Checksum) {
		log.Printf("webhook event %q rejected: checksum verification failed", event.Event)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "invalid_signature").Inc()
		return
	}

	switch event.Event {
	case wompi.EventTransactionUpdated:
		s.handleTransactionUpdated(event)
	case wompi.EventNequiTokenUpdated, wompi.EventBancolombiaTokenUpdated:
		// Token lifecycle events carry no order to reconcile.
		log.Printf("webhook token event %q acknowledged", event.Event)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "acknowledged").Inc()
	default:
		log.Printf("webhook event %q ignored: unknown event type", event.Event)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "ignored").Inc()
	}
}

func (s *webhookService) handleTransactionUpdated(event *wompi.Event) {
	tx, err := event.Transaction()
	if err != nil {
		log.Printf("webhook event %q dropped: %v", event.Event, err)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "malformed").Inc()
		return
	}

	order, err := s.orderRepo.GetByPaymentReference(tx.ID, tx.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("webhook transaction %s (reference %s) matches no order, dropping", tx.ID, tx.Reference)
			s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "unmatched").Inc()
			return
		}
		log.Printf("webhook transaction %s lookup failed: %v", tx.ID, err)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "lookup_error").Inc()
		return
	}

	switch tx.Status {
	case wompi.StatusApproved:
		method := paymentMethodFromTransaction(tx)
		if _, err := s.orderService.ConfirmPayment(order.ID, tx.ID, method); err != nil {
			log.Printf("webhook confirmation of order %d failed: %v", order.ID, err)
			s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "confirm_error").Inc()
			return
		}
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "settled").Inc()
	case wompi.StatusDeclined, wompi.StatusError:
		reason := tx.StatusMessage
		if reason == "" {
			reason = "payment " + tx.Status
		}
		if _, err := s.orderService.CancelOrderAndPayment(order.ID, reason); err != nil {
			// Already in a terminal local state; nothing left to do.
			log.Printf("webhook cancellation of order %d skipped: %v", order.ID, err)
			s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "cancel_skipped").Inc()
			return
		}
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "cancelled").Inc()
	default:
		log.Printf("webhook transaction %s for order %d still %s, no action", tx.ID, order.ID, tx.Status)
		s.metrics.WebhookEventsTotal.WithLabelValues(event.Event, "pending").Inc()
	}
}
