package handlers

import (
	"net/http"

	"encargate/internal/services"
	"encargate/pkg/wompi"

	"github.com/gin-gonic/gin"
)

type WompiHandler struct {
	client       *wompi.Client
	signatures   *wompi.SignatureService
	orderService services.OrderService
}

func NewWompiHandler(client *wompi.Client, signatures *wompi.SignatureService, orderService services.OrderService) *WompiHandler {
	return &WompiHandler{client: client, signatures: signatures, orderService: orderService}
}

// attachToOrder links a freshly created transaction to its order so the
// webhook can find it. A failed attach is not fatal for the transaction.
func (h *WompiHandler) attachToOrder(c *gin.Context, orderID uint, tx *wompi.Transaction) {
	if orderID == 0 {
		return
	}
	if _, err := h.orderService.AttachPaymentIntent(orderID, tx.ID); err != nil {
		respondError(c, err)
		c.Abort()
	}
}

func (h *WompiHandler) CreateNequiTransaction(c *gin.Context) {
	var req struct {
		OrderID uint `json:"orderId"`
		wompi.NequiPaymentRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tx, err := h.client.CreateNequiTransaction(c.Request.Context(), &req.NequiPaymentRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	h.attachToOrder(c, req.OrderID, tx)
	if c.IsAborted() {
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *WompiHandler) CreatePSETransaction(c *gin.Context) {
	var req struct {
		OrderID uint `json:"orderId"`
		wompi.PSEPaymentRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tx, err := h.client.CreatePSETransaction(c.Request.Context(), &req.PSEPaymentRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	h.attachToOrder(c, req.OrderID, tx)
	if c.IsAborted() {
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *WompiHandler) CreateBancolombiaTransaction(c *gin.Context) {
	var req struct {
		OrderID uint `json:"orderId"`
		wompi.BancolombiaPaymentRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tx, err := h.client.CreateBancolombiaTransaction(c.Request.Context(), &req.BancolombiaPaymentRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	h.attachToOrder(c, req.OrderID, tx)
	if c.IsAborted() {
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *WompiHandler) CreateCardTransaction(c *gin.Context) {
	var req struct {
		OrderID uint `json:"orderId"`
		wompi.CardPaymentRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tx, err := h.client.CreateCardTransaction(c.Request.Context(), &req.CardPaymentRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	h.attachToOrder(c, req.OrderID, tx)
	if c.IsAborted() {
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *WompiHandler) GetTransaction(c *gin.Context) {
	tx, err := h.client.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *WompiHandler) CancelTransaction(c *gin.Context) {
	result, err := h.client.CancelTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WompiHandler) GetPSEBanks(c *gin.Context) {
	banks, err := h.client.GetPSEBanks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

func (h *WompiHandler) GetAcceptanceTokens(c *gin.Context) {
	tokens, err := h.client.GetAcceptanceTokens(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *WompiHandler) TokenizeCard(c *gin.Context) {
	var req wompi.CardTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	card, err := h.client.TokenizeCard(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *WompiHandler) TokenizeNequi(c *gin.Context) {
	var req wompi.NequiTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	token, err := h.client.TokenizeNequi(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

func (h *WompiHandler) GetNequiTokenStatus(c *gin.Context) {
	token, err := h.client.GetNequiTokenStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// SignatureReference hands the checkout widget a fresh reference and, when
// amount and currency are supplied, the matching integrity signature.
func (h *WompiHandler) SignatureReference(c *gin.Context) {
	reference := h.signatures.GenerateReference(c.Query("prefix"))

	response := gin.H{"reference": reference}

	amountStr := c.Query("amountInCents")
	currency := c.Query("currency")
	if amountStr != "" && currency != "" {
		amount, err := parseInt64(amountStr)
		if err != nil || amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amountInCents must be a positive integer"})
			return
		}
		signature, err := h.signatures.GenerateSignature(reference, amount, currency, c.Query("expirationTime"))
		if err != nil {
			respondError(c, err)
			return
		}
		response["signature"] = signature
	}

	c.JSON(http.StatusOK, response)
}
