package handlers

import (
	"net/http"
	"strconv"

	"encargate/internal/models"
	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req struct {
		OrderID uint   `json:"order_id" binding:"required"`
		UserID  uint   `json:"user_id" binding:"required"`
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	review := &models.Review{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.reviewService.CreateReview(review); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetReviews(c *gin.Context) {
	encargadoID, err := strconv.ParseUint(c.Query("encargado_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "encargado_id is required"})
		return
	}

	reviews, err := h.reviewService.GetReviewsByEncargado(uint(encargadoID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	var req struct {
		UserID  uint   `json:"user_id" binding:"required"`
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	review, err := h.reviewService.UpdateReview(uint(id), req.UserID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if err := h.reviewService.DeleteReview(uint(id), uint(userID)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
