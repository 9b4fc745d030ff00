package services

import "encargate/internal/models"

// Notifier pushes realtime events to connected parties. Delivery is best
// effort: a push for an identity with no live connection is dropped.
type Notifier interface {
	NotifyNewOrder(encargadoID uint, order *models.Order)
	NotifyOrderStatusChange(userID uint, order *models.Order)
	NotifyOrderStatusChangeToEncargado(encargadoID uint, order *models.Order)
	NotifyPaymentConfirmed(userID uint, order *models.Order)
	NotifyPaymentFailed(userID uint, order *models.Order, reason string)
	NotifyOrderCompleted(userID uint, order *models.Order)
	NotifyNewReview(encargadoID uint, review *models.Review)
}
