package services_test

import (
	"math"
	"testing"

	"encargate/internal/config"
	"encargate/internal/services"

	"github.com/stretchr/testify/assert"
)

func testPricingConfig() *config.Config {
	return &config.Config{
		DefaultMarginPercent: 5,
		MinMargin:            2000,
		WompiPercentFee:      0.0265,
		WompiFixedFee:        700,
		WompiIVA:             0.19,
	}
}

func TestCalculatePricing_StandardOrder(t *testing.T) {
	svc := services.NewPricingService(testPricingConfig())

	b := svc.CalculatePricing(100000, 5)

	assert.Equal(t, 100000.0, b.ServicePrice)
	assert.Equal(t, 5000.0, b.PlatformMargin)
	assert.Equal(t, 5.0, b.PlatformMarginPercent)

	// Fee base is the gross amount: 105000 * 0.0265 + 700, plus 19% IVA.
	assert.InDelta(t, 2782.5, b.WompiPercent, 0.001)
	assert.InDelta(t, 3482.5, b.WompiSubtotal, 0.001)
	assert.InDelta(t, 661.675, b.WompiIVA, 0.001)
	assert.InDelta(t, 4144.175, b.WompiCost, 0.001)

	// Fee split is even.
	assert.InDelta(t, b.WompiCost/2, b.WompiCostClient, 0.001)
	assert.InDelta(t, b.WompiCost/2, b.WompiCostProvider, 0.001)

	assert.InDelta(t, 107072.0875, b.TotalPrice, 0.001)
	assert.InDelta(t, 97927.9125, b.ProviderEarnings, 0.001)
	assert.Equal(t, b.PlatformMargin, b.PlatformEarnings)
}

func TestCalculatePricing_MoneyConservation(t *testing.T) {
	svc := services.NewPricingService(testPricingConfig())

	for _, price := range []float64{15000, 50000, 100000, 350000, 1200000} {
		b := svc.CalculatePricing(price, 0)

		// Everything paid in is either earned by a party or consumed as fee.
		leftover := b.TotalPrice - b.ProviderEarnings - b.PlatformEarnings - b.WompiCost
		assert.InDelta(t, 0, leftover, 0.0001, "conservation broken for price %.0f", price)
	}
}

func TestCalculatePricing_MinimumMarginFloor(t *testing.T) {
	svc := services.NewPricingService(testPricingConfig())

	// 5% of 20000 is 1000, below the 2000 floor.
	b := svc.CalculatePricing(20000, 5)
	assert.Equal(t, 2000.0, b.PlatformMargin)

	// At 40000 the percentage margin meets the floor exactly.
	b = svc.CalculatePricing(40000, 5)
	assert.Equal(t, 2000.0, b.PlatformMargin)

	// Above that the percentage wins.
	b = svc.CalculatePricing(100000, 5)
	assert.Equal(t, 5000.0, b.PlatformMargin)
}

func TestCalculatePricing_DefaultMargin(t *testing.T) {
	svc := services.NewPricingService(testPricingConfig())

	withDefault := svc.CalculatePricing(200000, 0)
	explicit := svc.CalculatePricing(200000, 5)

	assert.Equal(t, explicit, withDefault)
	assert.Equal(t, 5.0, withDefault.PlatformMarginPercent)

	negative := svc.CalculatePricing(200000, -3)
	assert.Equal(t, explicit, negative)
}

func TestCalculateWompiCost(t *testing.T) {
	svc := services.NewPricingService(testPricingConfig())

	cost := svc.CalculateWompiCost(105000)
	expected := (105000*0.0265 + 700) * 1.19
	assert.True(t, math.Abs(cost-expected) < 0.0001)
}
