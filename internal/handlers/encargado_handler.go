package handlers

import (
	"net/http"
	"strconv"

	"encargate/internal/services"

	"github.com/gin-gonic/gin"
)

type EncargadoHandler struct {
	encargadoService services.EncargadoService
}

func NewEncargadoHandler(encargadoService services.EncargadoService) *EncargadoHandler {
	return &EncargadoHandler{encargadoService: encargadoService}
}

func (h *EncargadoHandler) GetEncargados(c *gin.Context) {
	encargados, err := h.encargadoService.GetAllEncargados()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"encargados": encargados, "count": len(encargados)})
}

func (h *EncargadoHandler) GetEncargado(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encargado id"})
		return
	}

	encargado, err := h.encargadoService.GetEncargadoByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, encargado)
}

func (h *EncargadoHandler) ToggleAvailability(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid encargado id"})
		return
	}

	encargado, err := h.encargadoService.ToggleAvailability(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, encargado)
}
