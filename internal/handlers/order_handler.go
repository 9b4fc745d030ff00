package handlers

import (
	"net/http"
	"strconv"
	"time"

	"encargate/internal/models"
	"encargate/internal/repository"
	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		UserID        uint      `json:"user_id" binding:"required"`
		EncargadoID   uint      `json:"encargado_id" binding:"required"`
		CategoryID    uint      `json:"category_id"`
		Service       string    `json:"service" binding:"required"`
		Description   string    `json:"description"`
		Address       string    `json:"address" binding:"required"`
		Date          time.Time `json:"date" binding:"required"`
		Time          string    `json:"time"`
		Price         float64   `json:"price" binding:"required"`
		PaymentMethod string    `json:"payment_method"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order := &models.Order{
		UserID:        req.UserID,
		EncargadoID:   req.EncargadoID,
		CategoryID:    req.CategoryID,
		Service:       req.Service,
		Description:   req.Description,
		Address:       req.Address,
		Date:          req.Date,
		Time:          req.Time,
		Price:         req.Price,
		PaymentMethod: req.PaymentMethod,
	}

	if err := h.orderService.CreateOrder(order); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
	}
	if v, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil {
		filter.UserID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("encargado_id"), 10, 32); err == nil {
		filter.EncargadoID = uint(v)
	}

	orders, err := h.orderService.GetOrders(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	order, err := h.orderService.GetOrderByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	var req struct {
		Status    string `json:"status" binding:"required"`
		ActorID   uint   `json:"actor_id" binding:"required"`
		ActorRole string `json:"actor_role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.UpdateStatus(
		uint(id),
		models.OrderStatus(req.Status),
		models.UserRole(req.ActorRole),
		req.ActorID,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetStats(c *gin.Context) {
	filter := repository.OrderFilter{}
	if v, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil {
		filter.UserID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("encargado_id"), 10, 32); err == nil {
		filter.EncargadoID = uint(v)
	}

	stats, err := h.orderService.GetOrderStats(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
