package services

import "encargate/internal/config"

// PricingBreakdown is the three-way money split for one service. The gateway
// fee is absorbed half by the client and half by the provider, so the
// platform's net earnings equal its margin and the identity
// totalPrice - providerEarnings - platformEarnings == wompiCost holds.
type PricingBreakdown struct {
	ServicePrice float64 `json:"service_price"`

	WompiPercent      float64 `json:"wompi_percent"`
	WompiFixed        float64 `json:"wompi_fixed"`
	WompiSubtotal     float64 `json:"wompi_subtotal"`
	WompiIVA          float64 `json:"wompi_iva"`
	WompiCost         float64 `json:"wompi_cost"`
	WompiCostClient   float64 `json:"wompi_cost_client"`
	WompiCostProvider float64 `json:"wompi_cost_provider"`

	PlatformMargin        float64 `json:"platform_margin"`
	PlatformMarginPercent float64 `json:"platform_margin_percent"`

	TotalPrice       float64 `json:"total_price"`
	ProviderEarnings float64 `json:"provider_earnings"`
	PlatformEarnings float64 `json:"platform_earnings"`
}

type PricingService interface {
	// CalculatePricing computes the breakdown for a base service price.
	// marginPercent <= 0 selects the configured default.
	CalculatePricing(servicePrice, marginPercent float64) PricingBreakdown
	// CalculateWompiCost computes the gateway fee alone for a gross amount.
	CalculateWompiCost(amount float64) float64
}

type pricingService struct {
	defaultMarginPercent float64
	minMargin            float64
	percentFee           float64
	fixedFee             float64
	iva                  float64
}

func NewPricingService(cfg *config.Config) PricingService {
	return &pricingService{
		defaultMarginPercent: cfg.DefaultMarginPercent,
		minMargin:            cfg.MinMargin,
		percentFee:           cfg.WompiPercentFee,
		fixedFee:             cfg.WompiFixedFee,
		iva:                  cfg.WompiIVA,
	}
}

func (s *pricingService) CalculatePricing(servicePrice, marginPercent float64) PricingBreakdown {
	if marginPercent <= 0 {
		marginPercent = s.defaultMarginPercent
	}

	platformMargin := servicePrice * (marginPercent / 100)
	if platformMargin < s.minMargin {
		platformMargin = s.minMargin
	}

	// The fee is charged on the gross amount moving through the gateway,
	// not on the net service price.
	baseAmount := servicePrice + platformMargin
	wompiPercent := baseAmount * s.percentFee
	wompiSubtotal := wompiPercent + s.fixedFee
	wompiIVA := wompiSubtotal * s.iva
	wompiCost := wompiSubtotal + wompiIVA

	wompiCostClient := wompiCost / 2
	wompiCostProvider := wompiCost / 2

	return PricingBreakdown{
		ServicePrice: servicePrice,

		WompiPercent:      wompiPercent,
		WompiFixed:        s.fixedFee,
		WompiSubtotal:     wompiSubtotal,
		WompiIVA:          wompiIVA,
		WompiCost:         wompiCost,
		WompiCostClient:   wompiCostClient,
		WompiCostProvider: wompiCostProvider,

		PlatformMargin:        platformMargin,
		PlatformMarginPercent: marginPercent,

		TotalPrice:       servicePrice + platformMargin + wompiCostClient,
		ProviderEarnings: servicePrice - wompiCostProvider,
		PlatformEarnings: platformMargin,
	}
}

func (s *pricingService) CalculateWompiCost(amount float64) float64 {
	subtotal := amount*s.percentFee + s.fixedFee
	return subtotal + subtotal*s.iva
}
