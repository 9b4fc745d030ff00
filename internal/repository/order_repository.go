package repository

import (
	"encargate/internal/models"

	"gorm.io/gorm"
)

type OrderFilter struct {
	UserID      uint
	EncargadoID uint
	Status      models.OrderStatus
}

type OrderStatusCounts struct {
	Total         int64
	Pending       int64
	InProgress    int64
	Completed     int64
	Cancelled     int64
	TotalEarnings float64
}

type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByPaymentReference(transactionID, reference string) (*models.Order, error)
	GetAll(filter OrderFilter) ([]models.Order, error)
	Update(order *models.Order) error
	// SettlePayment applies the settlement fields only while the order is
	// still unpaid. The WHERE guard is the idempotency barrier against a
	// webhook and a manual verify racing on the same order.
	SettlePayment(id uint, fields map[string]interface{}) (bool, error)
	GetPaidOrders() ([]models.Order, error)
	GetPaidOrdersSince(months int) ([]models.Order, error)
	GetCompletedWithoutBreakdown() ([]models.Order, error)
	CountByStatus(filter OrderFilter) (*OrderStatusCounts, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByPaymentReference(transactionID, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("payment_intent_id IN ?", []string{transactionID, reference}).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetAll(filter OrderFilter) ([]models.Order, error) {
	query := r.db.Order("created_at DESC")
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.EncargadoID != 0 {
		query = query.Where("encargado_id = ?", filter.EncargadoID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

func (r *orderRepository) SettlePayment(id uint, fields map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", id, string(models.PaymentPaid)).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) GetPaidOrders() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("payment_status = ?", string(models.PaymentPaid)).Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetPaidOrdersSince(months int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("payment_status = ?", string(models.PaymentPaid)).
		Where("created_at >= NOW() - (? * INTERVAL '1 month')", months).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetCompletedWithoutBreakdown() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("status = ?", string(models.OrderCompleted)).
		Where("payment_method <> ?", models.PaymentMethodCash).
		Where("total_price IS NULL").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) CountByStatus(filter OrderFilter) (*OrderStatusCounts, error) {
	base := func() *gorm.DB {
		query := r.db.Model(&models.Order{})
		if filter.UserID != 0 {
			query = query.Where("user_id = ?", filter.UserID)
		}
		if filter.EncargadoID != 0 {
			query = query.Where("encargado_id = ?", filter.EncargadoID)
		}
		return query
	}

	counts := &OrderStatusCounts{}
	if err := base().Count(&counts.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", string(models.OrderPending)).Count(&counts.Pending).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", string(models.OrderInProgress)).Count(&counts.InProgress).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", string(models.OrderCompleted)).Count(&counts.Completed).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", string(models.OrderCancelled)).Count(&counts.Cancelled).Error; err != nil {
		return nil, err
	}

	err := base().
		Where("status = ?", string(models.OrderCompleted)).
		Select("COALESCE(SUM(price), 0)").
		Scan(&counts.TotalEarnings).Error
	if err != nil {
		return nil, err
	}

	return counts, nil
}
