package handlers

import (
	"net/http"
	"strconv"

	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	pricingService services.PricingService
}

func NewPricingHandler(pricingService services.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

func (h *PricingHandler) Calculate(c *gin.Context) {
	servicePrice, err := strconv.ParseFloat(c.Query("servicePrice"), 64)
	if err != nil || servicePrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "servicePrice must be a positive number"})
		return
	}

	marginPercent, _ := strconv.ParseFloat(c.Query("marginPercent"), 64)

	c.JSON(http.StatusOK, h.pricingService.CalculatePricing(servicePrice, marginPercent))
}

func (h *PricingHandler) WompiCost(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":     amount,
		"wompi_cost": h.pricingService.CalculateWompiCost(amount),
	})
}
