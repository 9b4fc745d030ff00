package wompi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Transaction statuses the gateway reports. Anything else is treated as an
// error condition, never silently accepted.
const (
	StatusApproved = "APPROVED"
	StatusPending  = "PENDING"
	StatusDeclined = "DECLINED"
	StatusError    = "ERROR"
	// StatusCancelled is local only: Wompi has no real cancellation.
	StatusCancelled = "CANCELLED"
)

// maxReferenceAttempts bounds the retry loop for "reference already used"
// rejections. Every retry uses a freshly generated reference.
const maxReferenceAttempts = 3

// AcceptanceTokens are the two merchant tokens (terms of service + personal
// data use) that must accompany every transaction.
type AcceptanceTokens struct {
	AcceptanceToken       string    `json:"acceptance_token"`
	AcceptPersonalAuth    string    `json:"accept_personal_auth"`
	AcceptancePermalink   string    `json:"acceptance_permalink"`
	PersonalDataPermalink string    `json:"personal_data_permalink"`
	FetchedAt             time.Time `json:"fetched_at"`
}

// AcceptanceTokenCache is implemented by the redis wrapper; a nil cache means
// every call hits the merchant endpoint.
type AcceptanceTokenCache interface {
	GetAcceptanceTokens() (*AcceptanceTokens, error)
	SetAcceptanceTokens(tokens *AcceptanceTokens, ttl time.Duration) error
}

type Transaction struct {
	ID            string                 `json:"id"`
	Status        string                 `json:"status"`
	StatusMessage string                 `json:"status_message"`
	Reference     string                 `json:"reference"`
	AmountInCents int64                  `json:"amount_in_cents"`
	Currency      string                 `json:"currency"`
	CustomerEmail string                 `json:"customer_email"`
	CreatedAt     string                 `json:"created_at"`
	RedirectURL   string                 `json:"redirect_url"`
	PaymentMethod map[string]interface{} `json:"payment_method"`
}

// AsyncPaymentURL extracts the redirect URL Bancolombia transfers carry in
// payment_method.extra, if any.
func (t *Transaction) AsyncPaymentURL() string {
	extra, ok := t.PaymentMethod["extra"].(map[string]interface{})
	if !ok {
		return ""
	}
	url, _ := extra["async_payment_url"].(string)
	return url
}

// CancelResult reports the outcome of a local cancellation attempt.
type CancelResult struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	OriginalStatus string `json:"original_status"`
	Message        string `json:"message"`
}

type NequiPaymentRequest struct {
	AmountInCents int64  `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required"`
	PhoneNumber   string `json:"phoneNumber" binding:"required"`
}

type PSEPaymentRequest struct {
	AmountInCents            int64  `json:"amount" binding:"required"`
	Currency                 string `json:"currency" binding:"required"`
	CustomerEmail            string `json:"customerEmail" binding:"required"`
	UserType                 string `json:"userType"`
	UserLegalIDType          string `json:"userLegalIdType" binding:"required"`
	UserLegalID              string `json:"userLegalId" binding:"required"`
	FinancialInstitutionCode string `json:"financialInstitutionCode" binding:"required"`
	RedirectURL              string `json:"redirectUrl"`
}

type BancolombiaPaymentRequest struct {
	AmountInCents int64  `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required"`
	RedirectURL   string `json:"redirectUrl"`
}

type CardPaymentRequest struct {
	AmountInCents int64  `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required"`
	Token         string `json:"token" binding:"required"`
	Installments  int    `json:"installments"`
}

type PSEBank struct {
	FinancialInstitutionCode string `json:"financial_institution_code"`
	FinancialInstitutionName string `json:"financial_institution_name"`
}

// APIError is a structured gateway rejection.
type APIError struct {
	StatusCode int
	Type       string
	Reason     string
	Messages   map[string]interface{}
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("wompi error %d: %s", e.StatusCode, flattenMessages(e.Messages))
	}
	if e.Reason != "" {
		return fmt.Sprintf("wompi error %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("wompi error %d: %s", e.StatusCode, e.Type)
}

// IsDuplicateReference reports whether the gateway rejected the reference as
// already used. Only this error class is retryable.
func (e *APIError) IsDuplicateReference() bool {
	return strings.Contains(strings.ToLower(flattenMessages(e.Messages)), "referencia ya ha sido usada")
}

func flattenMessages(messages map[string]interface{}) string {
	parts := make([]string, 0, len(messages))
	for field, value := range messages {
		parts = append(parts, fmt.Sprintf("%s: %v", field, value))
	}
	return strings.Join(parts, "; ")
}

// Client talks to the Wompi payment gateway. Mutations authenticate with the
// private key, read-only queries with the public key.
type Client struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	HTTPClient *http.Client

	signatures *SignatureService
	tokenCache AcceptanceTokenCache
	tokenTTL   time.Duration
}

func NewClient(baseURL, publicKey, privateKey string, signatures *SignatureService, tokenCache AcceptanceTokenCache, tokenTTL time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signatures: signatures,
		tokenCache: tokenCache,
		tokenTTL:   tokenTTL,
	}
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Type     string                 `json:"type"`
		Reason   string                 `json:"reason"`
		Messages map[string]interface{} `json:"messages"`
	} `json:"error"`
}

func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || envelope.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Reason = envelope.Error.Reason
			apiErr.Messages = envelope.Error.Messages
		}
		return nil, apiErr
	}

	return envelope.Data, nil
}

// GetAcceptanceTokens fetches the mandatory merchant tokens, serving them from
// the cache when possible. A transaction cannot be created without them, so a
// failure here is fatal for the caller.
func (c *Client) GetAcceptanceTokens(ctx context.Context) (*AcceptanceTokens, error) {
	if c.tokenCache != nil {
		if cached, err := c.tokenCache.GetAcceptanceTokens(); err == nil && cached != nil {
			return cached, nil
		}
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/merchants/"+c.PublicKey, c.PublicKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch acceptance tokens: %w", err)
	}

	var merchant struct {
		PresignedAcceptance struct {
			AcceptanceToken string `json:"acceptance_token"`
			Permalink       string `json:"permalink"`
		} `json:"presigned_acceptance"`
		PresignedPersonalDataAuth struct {
			AcceptanceToken string `json:"acceptance_token"`
			Permalink       string `json:"permalink"`
		} `json:"presigned_personal_data_auth"`
	}
	if err := json.Unmarshal(data, &merchant); err != nil {
		return nil, fmt.Errorf("failed to parse merchant response: %w", err)
	}

	if merchant.PresignedAcceptance.AcceptanceToken == "" || merchant.PresignedPersonalDataAuth.AcceptanceToken == "" {
		return nil, errors.New("acceptance tokens are incomplete in merchant response")
	}

	tokens := &AcceptanceTokens{
		AcceptanceToken:       merchant.PresignedAcceptance.AcceptanceToken,
		AcceptPersonalAuth:    merchant.PresignedPersonalDataAuth.AcceptanceToken,
		AcceptancePermalink:   merchant.PresignedAcceptance.Permalink,
		PersonalDataPermalink: merchant.PresignedPersonalDataAuth.Permalink,
		FetchedAt:             time.Now(),
	}

	if c.tokenCache != nil {
		if err := c.tokenCache.SetAcceptanceTokens(tokens, c.tokenTTL); err != nil {
			log.Printf("wompi: failed to cache acceptance tokens: %v", err)
		}
	}

	return tokens, nil
}

// createTransaction posts a transaction with a fresh unique reference,
// retrying with a new reference only when the gateway reports the reference as
// already used. Every other error class fails the call immediately.
func (c *Client) createTransaction(ctx context.Context, prefix string, amountInCents int64, currency, customerEmail string, paymentMethod map[string]interface{}, redirectURL string) (*Transaction, error) {
	tokens, err := c.GetAcceptanceTokens(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		reference := c.signatures.GenerateReference(prefix)

		requestBody := map[string]interface{}{
			"acceptance_token":     tokens.AcceptanceToken,
			"accept_personal_auth": tokens.AcceptPersonalAuth,
			"amount_in_cents":      amountInCents,
			"currency":             currency,
			"customer_email":       customerEmail,
			"reference":            reference,
			"payment_method":       paymentMethod,
		}
		if redirectURL != "" {
			requestBody["redirect_url"] = redirectURL
		}
		if signature, err := c.signatures.GenerateSignature(reference, amountInCents, currency, ""); err == nil {
			requestBody["signature"] = signature
		} else {
			log.Printf("wompi: sending transaction without integrity signature: %v", err)
		}

		data, err := c.doRequest(ctx, http.MethodPost, "/transactions", c.PrivateKey, requestBody)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.IsDuplicateReference() && attempt < maxReferenceAttempts {
				log.Printf("wompi: reference %s already used, retrying (%d/%d)", reference, attempt, maxReferenceAttempts)
				lastErr = err
				continue
			}
			return nil, err
		}

		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("failed to parse transaction response: %w", err)
		}

		switch tx.Status {
		case StatusApproved, StatusPending:
			return &tx, nil
		case StatusDeclined, StatusError:
			if tx.StatusMessage != "" {
				return nil, fmt.Errorf("transaction %s rejected: %s", tx.ID, tx.StatusMessage)
			}
			return nil, fmt.Errorf("transaction %s rejected with status %s", tx.ID, tx.Status)
		default:
			return nil, fmt.Errorf("transaction %s has unknown status %q", tx.ID, tx.Status)
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts creating transaction: %w", maxReferenceAttempts, lastErr)
}

func (c *Client) CreateNequiTransaction(ctx context.Context, req *NequiPaymentRequest) (*Transaction, error) {
	if err := validateColombianPhone(req.PhoneNumber); err != nil {
		return nil, err
	}
	return c.createTransaction(ctx, "NEQUI", req.AmountInCents, req.Currency, req.CustomerEmail, map[string]interface{}{
		"type":         "NEQUI",
		"phone_number": req.PhoneNumber,
	}, "")
}

func (c *Client) CreatePSETransaction(ctx context.Context, req *PSEPaymentRequest) (*Transaction, error) {
	userType := 0 // NATURAL
	if req.UserType == "JURIDICA" {
		userType = 1
	}
	return c.createTransaction(ctx, "PSE", req.AmountInCents, req.Currency, req.CustomerEmail, map[string]interface{}{
		"type":                       "PSE",
		"user_type":                  userType,
		"user_legal_id_type":         req.UserLegalIDType,
		"user_legal_id":              req.UserLegalID,
		"financial_institution_code": req.FinancialInstitutionCode,
		"payment_description":        "Pago servicio Encargate",
	}, req.RedirectURL)
}

func (c *Client) CreateBancolombiaTransaction(ctx context.Context, req *BancolombiaPaymentRequest) (*Transaction, error) {
	tx, err := c.createTransaction(ctx, "BANCOLOMBIA", req.AmountInCents, req.Currency, req.CustomerEmail, map[string]interface{}{
		"type":                "BANCOLOMBIA_TRANSFER",
		"user_type":           "PERSON",
		"payment_description": "Pago servicio Encargate",
	}, req.RedirectURL)
	if err != nil {
		return nil, err
	}
	if url := tx.AsyncPaymentURL(); url != "" {
		tx.RedirectURL = url
	}
	return tx, nil
}

func (c *Client) CreateCardTransaction(ctx context.Context, req *CardPaymentRequest) (*Transaction, error) {
	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}
	return c.createTransaction(ctx, "CARD", req.AmountInCents, req.Currency, req.CustomerEmail, map[string]interface{}{
		"type":         "CARD",
		"installments": installments,
		"token":        req.Token,
	}, "")
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/transactions/"+transactionID, c.PublicKey, nil)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to parse transaction response: %w", err)
	}
	return &tx, nil
}

// CancelTransaction is a local-only downgrade: Wompi does not support true
// cancellation. An APPROVED transaction reports failure-to-cancel; anything
// not approved is reported as locally cancelled without touching the remote
// side.
func (c *Client) CancelTransaction(ctx context.Context, transactionID string) (*CancelResult, error) {
	tx, err := c.GetTransaction(ctx, transactionID)
	if err != nil {
		log.Printf("wompi: could not verify transaction %s before cancel: %v", transactionID, err)
		return &CancelResult{
			ID:      transactionID,
			Status:  StatusCancelled,
			Message: "transaction cancelled locally (remote status unknown)",
		}, nil
	}

	if tx.Status == StatusApproved {
		return &CancelResult{
			ID:             transactionID,
			Status:         StatusApproved,
			OriginalStatus: tx.Status,
			Message:        "transaction was already approved and cannot be cancelled",
		}, nil
	}

	return &CancelResult{
		ID:             transactionID,
		Status:         StatusCancelled,
		OriginalStatus: tx.Status,
		Message:        "transaction cancelled locally",
	}, nil
}

func (c *Client) GetPSEBanks(ctx context.Context) ([]PSEBank, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/pse/financial_institutions", c.PublicKey, nil)
	if err != nil {
		return nil, err
	}

	var banks []PSEBank
	if err := json.Unmarshal(data, &banks); err != nil {
		return nil, fmt.Errorf("failed to parse PSE banks response: %w", err)
	}
	return banks, nil
}
