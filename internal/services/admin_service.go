package services

import (
	"fmt"
	"sort"

	"encargate/internal/models"
	"encargate/internal/repository"
)

// DashboardMetrics is the admin home view. All money figures come from the
// frozen per-order breakdowns; legacy orders without one are priced on the
// fly with the current formula so old data still shows up.
type DashboardMetrics struct {
	TotalRevenue      float64 `json:"total_revenue"`
	PlatformEarnings  float64 `json:"platform_earnings"`
	ProviderEarnings  float64 `json:"provider_earnings"`
	WompiCosts        float64 `json:"wompi_costs"`
	PaidOrders        int     `json:"paid_orders"`
	ActiveClients     int64   `json:"active_clients"`
	ActiveEncargados  int64   `json:"active_encargados"`
	AverageOrderValue float64 `json:"average_order_value"`
}

type MonthlyRevenue struct {
	Month            string  `json:"month"`
	Revenue          float64 `json:"revenue"`
	PlatformEarnings float64 `json:"platform_earnings"`
	Orders           int     `json:"orders"`
}

type TopProvider struct {
	EncargadoID uint    `json:"encargado_id"`
	Name        string  `json:"name"`
	Service     string  `json:"service"`
	Rating      float64 `json:"rating"`
	PaidOrders  int     `json:"paid_orders"`
	TotalEarned float64 `json:"total_earned"`
}

type PaymentMethodStats struct {
	Method  string  `json:"method"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type AdminService interface {
	GetDashboardMetrics() (*DashboardMetrics, error)
	GetMonthlyRevenue(months int) ([]MonthlyRevenue, error)
	GetTopProviders(limit int) ([]TopProvider, error)
	GetPaymentMethodStats() ([]PaymentMethodStats, error)
}

type adminService struct {
	orderRepo     repository.OrderRepository
	encargadoRepo repository.EncargadoRepository
	userRepo      repository.UserRepository
	pricing       PricingService
}

func NewAdminService(
	orderRepo repository.OrderRepository,
	encargadoRepo repository.EncargadoRepository,
	userRepo repository.UserRepository,
	pricing PricingService,
) AdminService {
	return &adminService{
		orderRepo:     orderRepo,
		encargadoRepo: encargadoRepo,
		userRepo:      userRepo,
		pricing:       pricing,
	}
}

// orderBreakdown returns the frozen breakdown, or a recomputed one for
// orders settled before breakdown tracking.
func (s *adminService) orderBreakdown(order *models.Order) PricingBreakdown {
	if order.HasBreakdown() {
		return PricingBreakdown{
			ServicePrice:     order.Price,
			TotalPrice:       *order.TotalPrice,
			PlatformEarnings: *order.PlatformEarnings,
			WompiCost:        *order.WompiCost,
			ProviderEarnings: *order.ProviderEarnings,
		}
	}
	if order.PaymentMethod == models.PaymentMethodCash {
		// Cash never went through the gateway: the nominal price is the
		// whole story.
		return PricingBreakdown{
			ServicePrice:     order.Price,
			TotalPrice:       order.Price,
			ProviderEarnings: order.Price,
		}
	}
	return s.pricing.CalculatePricing(order.Price, 0)
}

func (s *adminService) GetDashboardMetrics() (*DashboardMetrics, error) {
	orders, err := s.orderRepo.GetPaidOrders()
	if err != nil {
		return nil, err
	}

	m := &DashboardMetrics{PaidOrders: len(orders)}
	for i := range orders {
		b := s.orderBreakdown(&orders[i])
		m.TotalRevenue += b.TotalPrice
		m.PlatformEarnings += b.PlatformEarnings
		m.ProviderEarnings += b.ProviderEarnings
		m.WompiCosts += b.WompiCost
	}
	if len(orders) > 0 {
		m.AverageOrderValue = m.TotalRevenue / float64(len(orders))
	}

	if m.ActiveClients, err = s.userRepo.CountWithPaidOrders(); err != nil {
		return nil, err
	}
	if m.ActiveEncargados, err = s.encargadoRepo.CountWithPaidOrders(); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *adminService) GetMonthlyRevenue(months int) ([]MonthlyRevenue, error) {
	if months <= 0 {
		months = 6
	}

	orders, err := s.orderRepo.GetPaidOrdersSince(months)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*MonthlyRevenue)
	for i := range orders {
		order := &orders[i]
		key := order.CreatedAt.Format("2006-01")
		entry, ok := byMonth[key]
		if !ok {
			entry = &MonthlyRevenue{Month: key}
			byMonth[key] = entry
		}
		b := s.orderBreakdown(order)
		entry.Revenue += b.TotalPrice
		entry.PlatformEarnings += b.PlatformEarnings
		entry.Orders++
	}

	result := make([]MonthlyRevenue, 0, len(byMonth))
	for _, entry := range byMonth {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result, nil
}

func (s *adminService) GetTopProviders(limit int) ([]TopProvider, error) {
	if limit <= 0 {
		limit = 10
	}

	encargados, err := s.encargadoRepo.GetAllWithPaidOrders()
	if err != nil {
		return nil, err
	}

	providers := make([]TopProvider, 0, len(encargados))
	for i := range encargados {
		encargado := &encargados[i]
		orders, err := s.orderRepo.GetAll(repository.OrderFilter{EncargadoID: encargado.ID})
		if err != nil {
			return nil, fmt.Errorf("loading orders for encargado %d: %w", encargado.ID, err)
		}

		provider := TopProvider{
			EncargadoID: encargado.ID,
			Name:        encargado.Name,
			Service:     encargado.Service,
			Rating:      encargado.Rating,
		}
		for j := range orders {
			if orders[j].PaymentStatus != string(models.PaymentPaid) {
				continue
			}
			b := s.orderBreakdown(&orders[j])
			provider.PaidOrders++
			provider.TotalEarned += b.ProviderEarnings
		}
		if provider.PaidOrders > 0 {
			providers = append(providers, provider)
		}
	}

	sort.Slice(providers, func(i, j int) bool { return providers[i].TotalEarned > providers[j].TotalEarned })
	if len(providers) > limit {
		providers = providers[:limit]
	}
	return providers, nil
}

func (s *adminService) GetPaymentMethodStats() ([]PaymentMethodStats, error) {
	orders, err := s.orderRepo.GetPaidOrders()
	if err != nil {
		return nil, err
	}

	byMethod := make(map[string]*PaymentMethodStats)
	for i := range orders {
		order := &orders[i]
		method := order.PaymentMethod
		if method == "" {
			method = "unknown"
		}
		entry, ok := byMethod[method]
		if !ok {
			entry = &PaymentMethodStats{Method: method}
			byMethod[method] = entry
		}
		entry.Orders++
		entry.Revenue += s.orderBreakdown(order).TotalPrice
	}

	result := make([]PaymentMethodStats, 0, len(byMethod))
	for _, entry := range byMethod {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Revenue > result[j].Revenue })
	return result, nil
}
