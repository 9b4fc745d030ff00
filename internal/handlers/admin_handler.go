package handlers

import (
	"net/http"
	"strconv"

	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService services.AdminService
	orderService services.OrderService
}

func NewAdminHandler(adminService services.AdminService, orderService services.OrderService) *AdminHandler {
	return &AdminHandler{adminService: adminService, orderService: orderService}
}

func (h *AdminHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.adminService.GetDashboardMetrics()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *AdminHandler) GetMonthlyRevenue(c *gin.Context) {
	months, _ := strconv.Atoi(c.Query("months"))

	revenue, err := h.adminService.GetMonthlyRevenue(months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"monthly_revenue": revenue})
}

func (h *AdminHandler) GetTopProviders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	providers, err := h.adminService.GetTopProviders(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_providers": providers})
}

func (h *AdminHandler) GetPaymentMethodStats(c *gin.Context) {
	stats, err := h.adminService.GetPaymentMethodStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": stats})
}

func (h *AdminHandler) RecalculateCommissions(c *gin.Context) {
	result, err := h.orderService.RecalculateCommissions()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
