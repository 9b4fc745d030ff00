package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"encargate/internal/metrics"
	"encargate/internal/models"
	"encargate/internal/repository"
	"encargate/pkg/wompi"

	"gorm.io/gorm"
)

// PaymentGateway is the slice of the Wompi client the reconciler needs.
type PaymentGateway interface {
	GetTransaction(ctx context.Context, transactionID string) (*wompi.Transaction, error)
}

// RatingUpdater recomputes a provider's aggregate rating. Satisfied by
// EncargadoService.
type RatingUpdater interface {
	UpdateRating(encargadoID uint) error
}

// OrderStats summarizes an order listing for a dashboard card.
type OrderStats struct {
	Total         int64   `json:"total"`
	Pending       int64   `json:"pending"`
	InProgress    int64   `json:"in_progress"`
	Completed     int64   `json:"completed"`
	Cancelled     int64   `json:"cancelled"`
	TotalEarnings float64 `json:"total_earnings"`
}

// RecalculationResult reports a commission backfill run.
type RecalculationResult struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type OrderService interface {
	CreateOrder(order *models.Order) error
	GetOrderByID(id uint) (*models.Order, error)
	GetOrders(filter repository.OrderFilter) ([]models.Order, error)
	UpdateStatus(orderID uint, newStatus models.OrderStatus, actorRole models.UserRole, actorID uint) (*models.Order, error)

	// AttachPaymentIntent records the gateway transaction id or reference
	// on an unpaid order so the webhook can match it later.
	AttachPaymentIntent(orderID uint, intentID string) (*models.Order, error)
	// ConfirmPayment settles a digital payment: it freezes the commission
	// breakdown, marks the order PAID and moves it to ACCEPTED. Calling it
	// again for an already settled order is a no-op that returns the order
	// unchanged.
	ConfirmPayment(orderID uint, transactionID, paymentMethod string) (*models.Order, error)
	ConfirmCashPayment(orderID uint) (*models.Order, error)
	CancelOrderAndPayment(orderID uint, reason string) (*models.Order, error)
	// VerifyPayment polls the gateway for the transaction's current state and
	// reconciles the order accordingly.
	VerifyPayment(ctx context.Context, orderID uint, transactionID string) (*models.Order, error)

	GetOrderStats(filter repository.OrderFilter) (*OrderStats, error)
	// RecalculateCommissions backfills the breakdown for completed digital
	// orders settled before breakdown tracking existed.
	RecalculateCommissions() (*RecalculationResult, error)
}

type orderService struct {
	orderRepo     repository.OrderRepository
	encargadoRepo repository.EncargadoRepository
	pricing       PricingService
	gateway       PaymentGateway
	notifier      Notifier
	ratings       RatingUpdater
	metrics       *metrics.PaymentMetrics
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	encargadoRepo repository.EncargadoRepository,
	pricing PricingService,
	gateway PaymentGateway,
	notifier Notifier,
	ratings RatingUpdater,
	paymentMetrics *metrics.PaymentMetrics,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		encargadoRepo: encargadoRepo,
		pricing:       pricing,
		gateway:       gateway,
		notifier:      notifier,
		ratings:       ratings,
		metrics:       paymentMetrics,
	}
}

func (s *orderService) CreateOrder(order *models.Order) error {
	if order.Price <= 0 {
		return BadRequestf("price must be positive, got %.2f", order.Price)
	}

	encargado, err := s.encargadoRepo.GetByID(order.EncargadoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("encargado %d not found", order.EncargadoID)
		}
		return err
	}
	if !encargado.Available {
		return BadRequestf("encargado %d is not available", order.EncargadoID)
	}

	order.Status = string(models.OrderPending)
	if order.PaymentMethod == models.PaymentMethodCash {
		// Cash settles at delivery; there is no gateway leg to wait for.
		order.PaymentStatus = string(models.PaymentPaid)
	} else {
		order.PaymentStatus = string(models.PaymentPending)
	}

	if err := s.orderRepo.Create(order); err != nil {
		return err
	}

	s.metrics.OrdersCreatedTotal.WithLabelValues(s.methodLabel(order.PaymentMethod)).Inc()
	s.notifier.NotifyNewOrder(order.EncargadoID, order)
	return nil
}

func (s *orderService) GetOrderByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("order %d not found", id)
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrders(filter repository.OrderFilter) ([]models.Order, error) {
	return s.orderRepo.GetAll(filter)
}

func (s *orderService) UpdateStatus(orderID uint, newStatus models.OrderStatus, actorRole models.UserRole, actorID uint) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, BadRequestf("unknown order status %q", newStatus)
	}

	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	current := models.OrderStatus(order.Status)

	switch actorRole {
	case models.RoleEncargado:
		// Providers are restricted by ownership only.
		if order.EncargadoID != actorID {
			return nil, BadRequestf("order %d does not belong to encargado %d", orderID, actorID)
		}
	case models.RoleCliente:
		// Clients may only back out of an order the provider has not
		// started working on.
		if newStatus != models.OrderCancelled {
			return nil, BadRequestf("clients can only cancel orders")
		}
		if order.UserID != actorID {
			return nil, BadRequestf("order %d does not belong to user %d", orderID, actorID)
		}
		if current != models.OrderPending {
			return nil, BadRequestf("order %d is %s and can no longer be cancelled by the client", orderID, current)
		}
	case models.RoleAdmin:
	default:
		return nil, BadRequestf("unknown role %q", actorRole)
	}

	// Digital orders cannot be accepted before the money cleared.
	if newStatus == models.OrderAccepted &&
		order.PaymentMethod != models.PaymentMethodCash &&
		order.PaymentStatus != string(models.PaymentPaid) {
		return nil, BadRequestf("order %d cannot be accepted until its payment is confirmed", orderID)
	}

	order.Status = string(newStatus)
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	s.notifier.NotifyOrderStatusChange(order.UserID, order)
	if actorRole == models.RoleEncargado {
		s.notifier.NotifyOrderStatusChangeToEncargado(order.EncargadoID, order)
	}

	switch newStatus {
	case models.OrderCompleted:
		if err := s.ratings.UpdateRating(order.EncargadoID); err != nil {
			log.Printf("rating recompute for encargado %d failed: %v", order.EncargadoID, err)
		}
		s.notifier.NotifyOrderCompleted(order.UserID, order)
	case models.OrderCancelled:
		s.metrics.OrdersCancelledTotal.WithLabelValues("status_change").Inc()
	}

	return order, nil
}

func (s *orderService) AttachPaymentIntent(orderID uint, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, BadRequestf("payment intent id must not be empty")
	}

	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == string(models.PaymentPaid) {
		return nil, BadRequestf("order %d is already paid", orderID)
	}

	order.PaymentIntentID = intentID
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ConfirmPayment(orderID uint, transactionID, paymentMethod string) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == string(models.PaymentPaid) {
		log.Printf("order %d already settled, ignoring duplicate confirmation for transaction %s", orderID, transactionID)
		return order, nil
	}

	current := models.OrderStatus(order.Status)
	if current != models.OrderPending && current != models.OrderAccepted {
		return nil, BadRequestf("order %d is %s and cannot accept a payment confirmation", orderID, current)
	}

	breakdown := s.pricing.CalculatePricing(order.Price, 0)

	fields := map[string]interface{}{
		"payment_status":    string(models.PaymentPaid),
		"status":            string(models.OrderAccepted),
		"payment_intent_id": transactionID,
		"total_price":       breakdown.TotalPrice,
		"platform_earnings": breakdown.PlatformEarnings,
		"wompi_cost":        breakdown.WompiCost,
		"provider_earnings": breakdown.ProviderEarnings,
	}
	if paymentMethod != "" {
		fields["payment_method"] = paymentMethod
	}

	settled, err := s.orderRepo.SettlePayment(orderID, fields)
	if err != nil {
		return nil, err
	}
	if !settled {
		// Lost the race against another confirmation path. The winner's
		// state is the truth.
		log.Printf("order %d was settled concurrently, keeping the existing breakdown", orderID)
		return s.GetOrderByID(orderID)
	}

	order, err = s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersSettledTotal.WithLabelValues(s.methodLabel(order.PaymentMethod)).Inc()
	s.metrics.PlatformEarningsSum.Add(breakdown.PlatformEarnings)

	s.notifier.NotifyPaymentConfirmed(order.UserID, order)
	s.notifier.NotifyOrderStatusChangeToEncargado(order.EncargadoID, order)
	return order, nil
}

func (s *orderService) ConfirmCashPayment(orderID uint) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	// Cash confirmation is a trusted local action used when a client
	// switches payment method after creation, so it applies regardless of
	// the order's current status. No gateway fee applies and no breakdown
	// is frozen.
	order.PaymentStatus = string(models.PaymentPaid)
	order.PaymentMethod = models.PaymentMethodCash
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	s.metrics.OrdersSettledTotal.WithLabelValues(models.PaymentMethodCash).Inc()
	s.notifier.NotifyPaymentConfirmed(order.UserID, order)
	return order, nil
}

func (s *orderService) CancelOrderAndPayment(orderID uint, reason string) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	current := models.OrderStatus(order.Status)
	if current != models.OrderPending && current != models.OrderAccepted {
		return nil, BadRequestf("order %d is %s and cannot be cancelled", orderID, current)
	}

	order.Status = string(models.OrderCancelled)
	order.PaymentStatus = string(models.PaymentFailed)
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	s.metrics.OrdersCancelledTotal.WithLabelValues("payment_failed").Inc()
	s.notifier.NotifyPaymentFailed(order.UserID, order, reason)
	s.notifier.NotifyOrderStatusChangeToEncargado(order.EncargadoID, order)
	return order, nil
}

func (s *orderService) VerifyPayment(ctx context.Context, orderID uint, transactionID string) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == string(models.PaymentPaid) {
		return order, nil
	}

	tx, err := s.gateway.GetTransaction(ctx, transactionID)
	if err != nil {
		s.metrics.GatewayRequestsTotal.WithLabelValues("get_transaction", "error").Inc()
		return nil, fmt.Errorf("verifying transaction %s: %w", transactionID, err)
	}
	s.metrics.GatewayRequestsTotal.WithLabelValues("get_transaction", "ok").Inc()

	switch tx.Status {
	case wompi.StatusApproved:
		method := paymentMethodFromTransaction(tx)
		return s.ConfirmPayment(orderID, tx.ID, method)
	case wompi.StatusDeclined, wompi.StatusError:
		reason := tx.StatusMessage
		if reason == "" {
			reason = fmt.Sprintf("transaction %s was %s", tx.ID, tx.Status)
		}
		return s.CancelOrderAndPayment(orderID, reason)
	default:
		// Still PENDING at the gateway; nothing to reconcile yet.
		return order, nil
	}
}

func (s *orderService) GetOrderStats(filter repository.OrderFilter) (*OrderStats, error) {
	counts, err := s.orderRepo.CountByStatus(filter)
	if err != nil {
		return nil, err
	}
	return &OrderStats{
		Total:         counts.Total,
		Pending:       counts.Pending,
		InProgress:    counts.InProgress,
		Completed:     counts.Completed,
		Cancelled:     counts.Cancelled,
		TotalEarnings: counts.TotalEarnings,
	}, nil
}

func (s *orderService) RecalculateCommissions() (*RecalculationResult, error) {
	orders, err := s.orderRepo.GetCompletedWithoutBreakdown()
	if err != nil {
		return nil, err
	}

	result := &RecalculationResult{Processed: len(orders)}
	for i := range orders {
		order := &orders[i]
		breakdown := s.pricing.CalculatePricing(order.Price, 0)

		order.TotalPrice = &breakdown.TotalPrice
		order.PlatformEarnings = &breakdown.PlatformEarnings
		order.WompiCost = &breakdown.WompiCost
		order.ProviderEarnings = &breakdown.ProviderEarnings

		if err := s.orderRepo.Update(order); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("order %d: %v", order.ID, err))
			continue
		}
		result.Updated++
	}

	return result, nil
}

func (s *orderService) methodLabel(method string) string {
	if method == "" {
		return "unknown"
	}
	return method
}

// paymentMethodFromTransaction pulls the method type out of the gateway's
// payment_method payload, lowercased to match locally stored methods.
func paymentMethodFromTransaction(tx *wompi.Transaction) string {
	if tx.PaymentMethod == nil {
		return ""
	}
	methodType, _ := tx.PaymentMethod["type"].(string)
	return strings.ToLower(methodType)
}
