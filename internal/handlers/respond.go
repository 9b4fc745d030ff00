package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"encargate/internal/services"
	"encargate/pkg/wompi"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP statuses. Gateway rejections come
// back as 502 so callers can tell an upstream failure from their own mistake.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case services.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		var apiErr *wompi.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error()})
			return
		}
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
