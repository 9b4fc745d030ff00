package wompi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var colombianPhonePattern = regexp.MustCompile(`^3\d{9}$`)

type CardTokenRequest struct {
	Number     string `json:"number" binding:"required"`
	CVC        string `json:"cvc" binding:"required"`
	ExpMonth   string `json:"exp_month" binding:"required"`
	ExpYear    string `json:"exp_year" binding:"required"`
	CardHolder string `json:"card_holder" binding:"required"`
}

type TokenizedCard struct {
	ID         string `json:"id"`
	Brand      string `json:"brand"`
	Name       string `json:"name"`
	LastFour   string `json:"last_four"`
	Bin        string `json:"bin"`
	ExpYear    string `json:"exp_year"`
	ExpMonth   string `json:"exp_month"`
	CardHolder string `json:"card_holder"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
}

type NequiTokenRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type TokenizedNequi struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
}

// TokenizeCard exchanges raw card data for a gateway token. Format validation
// happens before any network call.
func (c *Client) TokenizeCard(ctx context.Context, req *CardTokenRequest) (*TokenizedCard, error) {
	if err := validateCardData(req); err != nil {
		return nil, err
	}

	expMonth := req.ExpMonth
	if len(expMonth) == 1 {
		expMonth = "0" + expMonth
	}

	body := map[string]interface{}{
		"number":      strings.ReplaceAll(req.Number, " ", ""),
		"cvc":         req.CVC,
		"exp_month":   expMonth,
		"exp_year":    req.ExpYear,
		"card_holder": req.CardHolder,
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/tokens/cards", c.PublicKey, body)
	if err != nil {
		return nil, err
	}

	var card TokenizedCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card token response: %w", err)
	}
	return &card, nil
}

// TokenizeNequi registers a Nequi account for recurring payments.
func (c *Client) TokenizeNequi(ctx context.Context, req *NequiTokenRequest) (*TokenizedNequi, error) {
	if err := validateColombianPhone(req.PhoneNumber); err != nil {
		return nil, err
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/tokens/nequi", c.PublicKey, map[string]interface{}{
		"phone_number": req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	var token TokenizedNequi
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse nequi token response: %w", err)
	}
	return &token, nil
}

func (c *Client) GetNequiTokenStatus(ctx context.Context, tokenID string) (*TokenizedNequi, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/tokens/nequi/"+tokenID, c.PublicKey, nil)
	if err != nil {
		return nil, err
	}

	var token TokenizedNequi
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse nequi token response: %w", err)
	}
	return &token, nil
}

func validateCardData(req *CardTokenRequest) error {
	number := strings.ReplaceAll(req.Number, " ", "")
	if len(number) < 13 {
		return errors.New("card number must have at least 13 digits")
	}

	if len(req.CVC) < 3 || len(req.CVC) > 4 {
		return errors.New("cvc must be 3 or 4 digits")
	}

	month, err := strconv.Atoi(req.ExpMonth)
	if err != nil || month < 1 || month > 12 {
		return errors.New("expiration month must be between 1 and 12")
	}

	year, err := strconv.Atoi(req.ExpYear)
	if err != nil {
		return errors.New("expiration year is invalid")
	}
	if year < time.Now().Year()%100 {
		return errors.New("expiration year is in the past")
	}

	if len(req.CardHolder) < 5 {
		return errors.New("card holder name must be at least 5 characters")
	}

	return nil
}

func validateColombianPhone(phone string) error {
	if !colombianPhonePattern.MatchString(phone) {
		return errors.New("phone number must match Colombian mobile format 3XXXXXXXXX")
	}
	return nil
}
