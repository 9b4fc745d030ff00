package services_test

import (
	"context"
	"testing"

	"encargate/internal/metrics"
	"encargate/internal/models"
	"encargate/internal/repository"
	"encargate/internal/services"
	"encargate/pkg/wompi"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockOrderRepository struct {
	createFunc                func(order *models.Order) error
	getByIDFunc               func(id uint) (*models.Order, error)
	getByPaymentReferenceFunc func(transactionID, reference string) (*models.Order, error)
	getAllFunc                func(filter repository.OrderFilter) ([]models.Order, error)
	updateFunc                func(order *models.Order) error
	settlePaymentFunc         func(id uint, fields map[string]interface{}) (bool, error)
	getCompletedFunc          func() ([]models.Order, error)
	countByStatusFunc         func(filter repository.OrderFilter) (*repository.OrderStatusCounts, error)
}

func (m *mockOrderRepository) Create(order *models.Order) error { return m.createFunc(order) }
func (m *mockOrderRepository) GetByID(id uint) (*models.Order, error) {
	return m.getByIDFunc(id)
}
func (m *mockOrderRepository) GetByPaymentReference(transactionID, reference string) (*models.Order, error) {
	return m.getByPaymentReferenceFunc(transactionID, reference)
}
func (m *mockOrderRepository) GetAll(filter repository.OrderFilter) ([]models.Order, error) {
	return m.getAllFunc(filter)
}
func (m *mockOrderRepository) Update(order *models.Order) error { return m.updateFunc(order) }
func (m *mockOrderRepository) SettlePayment(id uint, fields map[string]interface{}) (bool, error) {
	return m.settlePaymentFunc(id, fields)
}
func (m *mockOrderRepository) GetPaidOrders() ([]models.Order, error) { return nil, nil }
func (m *mockOrderRepository) GetPaidOrdersSince(months int) ([]models.Order, error) {
	return nil, nil
}
func (m *mockOrderRepository) GetCompletedWithoutBreakdown() ([]models.Order, error) {
	return m.getCompletedFunc()
}
func (m *mockOrderRepository) CountByStatus(filter repository.OrderFilter) (*repository.OrderStatusCounts, error) {
	return m.countByStatusFunc(filter)
}

type mockEncargadoRepository struct {
	getByIDFunc func(id uint) (*models.Encargado, error)
}

func (m *mockEncargadoRepository) Create(encargado *models.Encargado) error { return nil }
func (m *mockEncargadoRepository) GetByID(id uint) (*models.Encargado, error) {
	return m.getByIDFunc(id)
}
func (m *mockEncargadoRepository) GetAll() ([]models.Encargado, error) { return nil, nil }
func (m *mockEncargadoRepository) GetAllWithPaidOrders() ([]models.Encargado, error) {
	return nil, nil
}
func (m *mockEncargadoRepository) Update(encargado *models.Encargado) error { return nil }
func (m *mockEncargadoRepository) UpdateRating(id uint, rating float64, reviewsCount int) error {
	return nil
}
func (m *mockEncargadoRepository) CountWithPaidOrders() (int64, error) { return 0, nil }

type mockNotifier struct {
	newOrderCalls         int
	paymentConfirmedCalls int
	paymentFailedCalls    int
	orderCompletedCalls   int
	newReviewCalls        int
	lastFailureReason     string
}

func (m *mockNotifier) NotifyNewOrder(encargadoID uint, order *models.Order) { m.newOrderCalls++ }
func (m *mockNotifier) NotifyOrderStatusChange(userID uint, order *models.Order) {}
func (m *mockNotifier) NotifyOrderStatusChangeToEncargado(encargadoID uint, order *models.Order) {}
func (m *mockNotifier) NotifyPaymentConfirmed(userID uint, order *models.Order) {
	m.paymentConfirmedCalls++
}
func (m *mockNotifier) NotifyPaymentFailed(userID uint, order *models.Order, reason string) {
	m.paymentFailedCalls++
	m.lastFailureReason = reason
}
func (m *mockNotifier) NotifyOrderCompleted(userID uint, order *models.Order) {
	m.orderCompletedCalls++
}
func (m *mockNotifier) NotifyNewReview(encargadoID uint, review *models.Review) { m.newReviewCalls++ }

type mockRatingUpdater struct {
	calls int
}

func (m *mockRatingUpdater) UpdateRating(encargadoID uint) error {
	m.calls++
	return nil
}

type mockGateway struct {
	getTransactionFunc func(ctx context.Context, transactionID string) (*wompi.Transaction, error)
}

func (m *mockGateway) GetTransaction(ctx context.Context, transactionID string) (*wompi.Transaction, error) {
	return m.getTransactionFunc(ctx, transactionID)
}

func newTestMetrics() *metrics.PaymentMetrics {
	return metrics.NewPaymentMetrics(prometheus.NewRegistry())
}

func availableEncargadoRepo() *mockEncargadoRepository {
	return &mockEncargadoRepository{
		getByIDFunc: func(id uint) (*models.Encargado, error) {
			return &models.Encargado{ID: id, Name: "Carlos", Available: true}, nil
		},
	}
}

// orderStore backs the order repository mock with a single in-memory order so
// settlement tests observe the same state transitions the database would.
type orderStore struct {
	order *models.Order
}

func (s *orderStore) repo() *mockOrderRepository {
	return &mockOrderRepository{
		getByIDFunc: func(id uint) (*models.Order, error) {
			if s.order == nil || s.order.ID != id {
				return nil, gorm.ErrRecordNotFound
			}
			clone := *s.order
			return &clone, nil
		},
		updateFunc: func(order *models.Order) error {
			clone := *order
			s.order = &clone
			return nil
		},
		settlePaymentFunc: func(id uint, fields map[string]interface{}) (bool, error) {
			if s.order.PaymentStatus == string(models.PaymentPaid) {
				return false, nil
			}
			s.order.PaymentStatus = fields["payment_status"].(string)
			s.order.Status = fields["status"].(string)
			s.order.PaymentIntentID = fields["payment_intent_id"].(string)
			if method, ok := fields["payment_method"].(string); ok {
				s.order.PaymentMethod = method
			}
			totalPrice := fields["total_price"].(float64)
			platformEarnings := fields["platform_earnings"].(float64)
			wompiCost := fields["wompi_cost"].(float64)
			providerEarnings := fields["provider_earnings"].(float64)
			s.order.TotalPrice = &totalPrice
			s.order.PlatformEarnings = &platformEarnings
			s.order.WompiCost = &wompiCost
			s.order.ProviderEarnings = &providerEarnings
			return true, nil
		},
	}
}

func newOrderService(orderRepo repository.OrderRepository, encargadoRepo repository.EncargadoRepository, notifier services.Notifier, gateway services.PaymentGateway) services.OrderService {
	pricing := services.NewPricingService(testPricingConfig())
	return services.NewOrderService(orderRepo, encargadoRepo, pricing, gateway, notifier, &mockRatingUpdater{}, newTestMetrics())
}

func TestCreateOrder_CashSettlesImmediately(t *testing.T) {
	var created *models.Order
	orderRepo := &mockOrderRepository{
		createFunc: func(order *models.Order) error {
			created = order
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := newOrderService(orderRepo, availableEncargadoRepo(), notifier, nil)

	order := &models.Order{UserID: 1, EncargadoID: 2, Price: 50000, PaymentMethod: models.PaymentMethodCash}
	err := svc.CreateOrder(order)

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), created.PaymentStatus)
	assert.Equal(t, string(models.OrderPending), created.Status)
	assert.False(t, created.HasBreakdown())
	assert.Equal(t, 1, notifier.newOrderCalls)
}

func TestCreateOrder_DigitalStartsPending(t *testing.T) {
	var created *models.Order
	orderRepo := &mockOrderRepository{
		createFunc: func(order *models.Order) error {
			created = order
			return nil
		},
	}
	svc := newOrderService(orderRepo, availableEncargadoRepo(), &mockNotifier{}, nil)

	order := &models.Order{UserID: 1, EncargadoID: 2, Price: 50000, PaymentMethod: "nequi"}
	err := svc.CreateOrder(order)

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPending), created.PaymentStatus)
}

func TestCreateOrder_RejectsUnavailableEncargado(t *testing.T) {
	encargadoRepo := &mockEncargadoRepository{
		getByIDFunc: func(id uint) (*models.Encargado, error) {
			return &models.Encargado{ID: id, Available: false}, nil
		},
	}
	svc := newOrderService(&mockOrderRepository{}, encargadoRepo, &mockNotifier{}, nil)

	err := svc.CreateOrder(&models.Order{UserID: 1, EncargadoID: 2, Price: 50000})

	require.Error(t, err)
	assert.True(t, services.IsBadRequest(err))
	assert.Contains(t, err.Error(), "not available")
}

func TestCreateOrder_UnknownEncargado(t *testing.T) {
	encargadoRepo := &mockEncargadoRepository{
		getByIDFunc: func(id uint) (*models.Encargado, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := newOrderService(&mockOrderRepository{}, encargadoRepo, &mockNotifier{}, nil)

	err := svc.CreateOrder(&models.Order{UserID: 1, EncargadoID: 99, Price: 50000})

	require.Error(t, err)
	assert.True(t, services.IsNotFound(err))
}

func TestConfirmPayment_FreezesBreakdown(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, EncargadoID: 2, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}}
	notifier := &mockNotifier{}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), notifier, nil)

	order, err := svc.ConfirmPayment(7, "txn-123", "nequi")

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), order.PaymentStatus)
	assert.Equal(t, string(models.OrderAccepted), order.Status)
	assert.Equal(t, "txn-123", order.PaymentIntentID)
	assert.Equal(t, "nequi", order.PaymentMethod)
	require.True(t, order.HasBreakdown())

	leftover := *order.TotalPrice - *order.ProviderEarnings - *order.PlatformEarnings - *order.WompiCost
	assert.InDelta(t, 0, leftover, 0.0001)

	assert.Equal(t, 1, notifier.paymentConfirmedCalls)
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, EncargadoID: 2, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}}
	notifier := &mockNotifier{}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), notifier, nil)

	first, err := svc.ConfirmPayment(7, "txn-123", "nequi")
	require.NoError(t, err)

	// A second confirmation, e.g. webhook after manual verify, changes nothing.
	second, err := svc.ConfirmPayment(7, "txn-456", "card")
	require.NoError(t, err)

	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, *first.TotalPrice, *second.TotalPrice)
	assert.Equal(t, 1, notifier.paymentConfirmedCalls)
}

func TestConfirmPayment_RejectsCancelledOrder(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, Price: 100000,
		Status:        string(models.OrderCancelled),
		PaymentStatus: string(models.PaymentFailed),
	}}
	notifier := &mockNotifier{}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), notifier, nil)

	// A late approval after cancellation must not resurrect the order.
	_, err := svc.ConfirmPayment(7, "txn-123", "nequi")

	require.Error(t, err)
	assert.True(t, services.IsBadRequest(err))
	assert.Equal(t, 0, notifier.paymentConfirmedCalls)
}

func TestConfirmPayment_LosesRaceGracefully(t *testing.T) {
	order := &models.Order{
		ID: 7, UserID: 1, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}
	orderRepo := &mockOrderRepository{
		getByIDFunc: func(id uint) (*models.Order, error) { return order, nil },
		settlePaymentFunc: func(id uint, fields map[string]interface{}) (bool, error) {
			// Another writer settled between the read and the guarded update.
			return false, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newOrderService(orderRepo, availableEncargadoRepo(), notifier, nil)

	_, err := svc.ConfirmPayment(7, "txn-123", "nequi")

	require.NoError(t, err)
	assert.Equal(t, 0, notifier.paymentConfirmedCalls)
}

func TestConfirmCashPayment(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 3, UserID: 1, Price: 60000,
		Status:        string(models.OrderCompleted),
		PaymentStatus: string(models.PaymentPending),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	order, err := svc.ConfirmCashPayment(3)

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), order.PaymentStatus)
	assert.Equal(t, models.PaymentMethodCash, order.PaymentMethod)
	assert.False(t, order.HasBreakdown())
}

func TestConfirmCashPayment_AppliesRegardlessOfStatus(t *testing.T) {
	// Switching to cash after a failed gateway attempt overrides the failed
	// payment state on purpose.
	store := &orderStore{order: &models.Order{
		ID: 3, UserID: 1, Price: 60000,
		Status:        string(models.OrderCancelled),
		PaymentStatus: string(models.PaymentFailed),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	order, err := svc.ConfirmCashPayment(3)

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), order.PaymentStatus)
	assert.Equal(t, models.PaymentMethodCash, order.PaymentMethod)
}

func TestCancelOrderAndPayment_OnlyEarlyStates(t *testing.T) {
	tests := []struct {
		status  models.OrderStatus
		wantErr bool
	}{
		{models.OrderPending, false},
		{models.OrderAccepted, false},
		{models.OrderInProgress, true},
		{models.OrderCompleted, true},
		{models.OrderCancelled, true},
	}

	for _, tt := range tests {
		store := &orderStore{order: &models.Order{
			ID: 5, UserID: 1, Price: 50000,
			Status:        string(tt.status),
			PaymentStatus: string(models.PaymentPending),
		}}
		notifier := &mockNotifier{}
		svc := newOrderService(store.repo(), availableEncargadoRepo(), notifier, nil)

		order, err := svc.CancelOrderAndPayment(5, "payment declined")

		if tt.wantErr {
			require.Error(t, err, "status %s", tt.status)
			assert.True(t, services.IsBadRequest(err))
			assert.Contains(t, err.Error(), string(tt.status))
		} else {
			require.NoError(t, err, "status %s", tt.status)
			assert.Equal(t, string(models.OrderCancelled), order.Status)
			assert.Equal(t, string(models.PaymentFailed), order.PaymentStatus)
			assert.Equal(t, "payment declined", notifier.lastFailureReason)
		}
	}
}

func TestUpdateStatus_ClientRules(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status: string(models.OrderPending),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	// Clients cannot advance the workflow.
	_, err := svc.UpdateStatus(9, models.OrderAccepted, models.RoleCliente, 1)
	require.Error(t, err)
	assert.True(t, services.IsBadRequest(err))

	// Another client's order is off limits.
	_, err = svc.UpdateStatus(9, models.OrderCancelled, models.RoleCliente, 42)
	require.Error(t, err)

	// The owner can cancel while pending.
	order, err := svc.UpdateStatus(9, models.OrderCancelled, models.RoleCliente, 1)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), order.Status)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status: string(models.OrderAccepted),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	for _, role := range []models.UserRole{models.RoleEncargado, models.RoleAdmin} {
		_, err := svc.UpdateStatus(9, models.OrderStatus("SHIPPED"), role, 2)
		require.Error(t, err, "role %s", role)
		assert.True(t, services.IsBadRequest(err))
	}
	assert.Equal(t, string(models.OrderAccepted), store.order.Status)
}

func TestUpdateStatus_ClientCannotCancelAccepted(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status: string(models.OrderAccepted),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	_, err := svc.UpdateStatus(9, models.OrderCancelled, models.RoleCliente, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(models.OrderAccepted))
}

func TestUpdateStatus_EncargadoOwnershipAndFlow(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status: string(models.OrderAccepted),
	}}
	notifier := &mockNotifier{}
	ratings := &mockRatingUpdater{}
	pricing := services.NewPricingService(testPricingConfig())
	svc := services.NewOrderService(store.repo(), availableEncargadoRepo(), pricing, nil, notifier, ratings, newTestMetrics())

	// Someone else's provider id is rejected.
	_, err := svc.UpdateStatus(9, models.OrderInProgress, models.RoleEncargado, 3)
	require.Error(t, err)

	order, err := svc.UpdateStatus(9, models.OrderInProgress, models.RoleEncargado, 2)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderInProgress), order.Status)

	// Completion notifies the client and refreshes the provider's rating.
	order, err = svc.UpdateStatus(9, models.OrderCompleted, models.RoleEncargado, 2)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCompleted), order.Status)
	assert.Equal(t, 1, notifier.orderCompletedCalls)
	assert.Equal(t, 1, ratings.calls)
}

func TestUpdateStatus_AcceptWaitsForDigitalPayment(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status:        string(models.OrderPending),
		PaymentMethod: "nequi",
		PaymentStatus: string(models.PaymentPending),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	_, err := svc.UpdateStatus(9, models.OrderAccepted, models.RoleEncargado, 2)
	require.Error(t, err)
	assert.True(t, services.IsBadRequest(err))

	store.order.PaymentStatus = string(models.PaymentPaid)
	order, err := svc.UpdateStatus(9, models.OrderAccepted, models.RoleEncargado, 2)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderAccepted), order.Status)
}

func TestUpdateStatus_CashOrderAcceptedWithoutGateway(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 9, UserID: 1, EncargadoID: 2,
		Status:        string(models.OrderPending),
		PaymentMethod: models.PaymentMethodCash,
		PaymentStatus: string(models.PaymentPaid),
	}}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, nil)

	order, err := svc.UpdateStatus(9, models.OrderAccepted, models.RoleEncargado, 2)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderAccepted), order.Status)
}

func TestVerifyPayment_ApprovedSettles(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}}
	gateway := &mockGateway{
		getTransactionFunc: func(ctx context.Context, transactionID string) (*wompi.Transaction, error) {
			return &wompi.Transaction{
				ID:            transactionID,
				Status:        wompi.StatusApproved,
				PaymentMethod: map[string]interface{}{"type": "NEQUI"},
			}, nil
		},
	}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, gateway)

	order, err := svc.VerifyPayment(context.Background(), 7, "txn-999")

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), order.PaymentStatus)
	assert.Equal(t, "nequi", order.PaymentMethod)
	assert.True(t, order.HasBreakdown())
}

func TestVerifyPayment_DeclinedCancels(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}}
	gateway := &mockGateway{
		getTransactionFunc: func(ctx context.Context, transactionID string) (*wompi.Transaction, error) {
			return &wompi.Transaction{ID: transactionID, Status: wompi.StatusDeclined, StatusMessage: "insufficient funds"}, nil
		},
	}
	notifier := &mockNotifier{}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), notifier, gateway)

	order, err := svc.VerifyPayment(context.Background(), 7, "txn-999")

	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), order.Status)
	assert.Equal(t, string(models.PaymentFailed), order.PaymentStatus)
	assert.Equal(t, "insufficient funds", notifier.lastFailureReason)
}

func TestVerifyPayment_PendingLeavesOrderAlone(t *testing.T) {
	store := &orderStore{order: &models.Order{
		ID: 7, UserID: 1, Price: 100000,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentPending),
	}}
	gateway := &mockGateway{
		getTransactionFunc: func(ctx context.Context, transactionID string) (*wompi.Transaction, error) {
			return &wompi.Transaction{ID: transactionID, Status: wompi.StatusPending}, nil
		},
	}
	svc := newOrderService(store.repo(), availableEncargadoRepo(), &mockNotifier{}, gateway)

	order, err := svc.VerifyPayment(context.Background(), 7, "txn-999")

	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPending), order.PaymentStatus)
	assert.Equal(t, string(models.OrderPending), order.Status)
}

func TestRecalculateCommissions(t *testing.T) {
	legacy := []models.Order{
		{ID: 1, Price: 100000, Status: string(models.OrderCompleted), PaymentMethod: "nequi"},
		{ID: 2, Price: 250000, Status: string(models.OrderCompleted), PaymentMethod: "card"},
	}
	var updated []*models.Order
	orderRepo := &mockOrderRepository{
		getCompletedFunc: func() ([]models.Order, error) { return legacy, nil },
		updateFunc: func(order *models.Order) error {
			updated = append(updated, order)
			return nil
		},
	}
	svc := newOrderService(orderRepo, availableEncargadoRepo(), &mockNotifier{}, nil)

	result, err := svc.RecalculateCommissions()

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Failed)
	for _, order := range updated {
		assert.True(t, order.HasBreakdown())
	}
}
