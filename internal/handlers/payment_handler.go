package handlers

import (
	"net/http"
	"strconv"

	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	orderService services.OrderService
}

func NewPaymentHandler(orderService services.OrderService) *PaymentHandler {
	return &PaymentHandler{orderService: orderService}
}

func (h *PaymentHandler) ConfirmCash(c *gin.Context) {
	var req struct {
		OrderID uint `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.ConfirmCashPayment(req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	order, err := h.orderService.GetOrderByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":          order.ID,
		"payment_status":    order.PaymentStatus,
		"payment_method":    order.PaymentMethod,
		"payment_intent_id": order.PaymentIntentID,
		"total_price":       order.TotalPrice,
	})
}

// VerifyPayment polls the gateway and reconciles the order with whatever
// state the transaction is in now.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req struct {
		OrderID       uint   `json:"orderId" binding:"required"`
		TransactionID string `json:"transactionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.VerifyPayment(c.Request.Context(), req.OrderID, req.TransactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
