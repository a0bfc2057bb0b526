// Package whish is the client for the Whish-style collect payment
// gateway. Validation happens before any network call; provider or
// network failures surface as ErrGatewayUnavailable carrying the
// provider message when one was returned.
package whish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

var (
	ErrInvalidRequest     = errors.New("invalid payment request")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

const (
	requestTimeout   = 30 * time.Second
	maxInvoiceName   = 100
	maxIdentifierLen = 255
)

type Client struct {
	baseURL     string
	channel     string
	secret      string
	successBase string
	failureBase string
	http        *http.Client
}

type Options struct {
	BaseURL     string
	Channel     string
	Secret      string
	SuccessBase string
	FailureBase string
}

func NewClient(opts Options) *Client {
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		channel:     opts.Channel,
		secret:      opts.Secret,
		successBase: strings.TrimRight(opts.SuccessBase, "/"),
		failureBase: strings.TrimRight(opts.FailureBase, "/"),
		http:        &http.Client{Timeout: requestTimeout},
	}
}

type CreatePaymentInput struct {
	UserID             string
	AgentID            string
	Amount             decimal.Decimal
	Currency           models.Currency
	AgentName          string
	PaymentRecordID    uint
	SuccessRedirectURL string
	FailureRedirectURL string
}

type CreatePaymentResult struct {
	CollectURL string
	ExternalID string
}

type StatusResult struct {
	CollectStatus    string
	PayerPhoneNumber string
	ExternalID       string
	Currency         models.Currency
}

type BalanceResult struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
	Total     decimal.Decimal
	Currency  models.Currency
}

// gateway wire shapes
type createRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Invoice            string          `json:"invoice"`
	ExternalID         int64           `json:"externalId"`
	SuccessCallbackURL string          `json:"successCallbackUrl"`
	FailureCallbackURL string          `json:"failureCallbackUrl"`
	SuccessRedirectURL string          `json:"successRedirectUrl"`
	FailureRedirectURL string          `json:"failureRedirectUrl"`
}

type statusRequest struct {
	Currency   string `json:"currency"`
	ExternalID int64  `json:"externalId"`
}

type envelope struct {
	Status bool            `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func (in *CreatePaymentInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.AgentID) == "" {
		return fmt.Errorf("%w: agentId is required", ErrInvalidRequest)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}
	if !in.Currency.Valid() {
		return fmt.Errorf("%w: currency must be one of USD, LBP, AED", ErrInvalidRequest)
	}
	if in.PaymentRecordID == 0 {
		return fmt.Errorf("%w: paymentRecordId is required", ErrInvalidRequest)
	}
	return nil
}

// invoiceText builds the provider-facing invoice line from a sanitized
// agent name and truncated identifiers.
func invoiceText(agentName, userID, agentID string) string {
	name := strings.NewReplacer("<", "", ">", "").Replace(agentName)
	return fmt.Sprintf("Access to %s for user %s (agent %s)",
		truncate(name, maxInvoiceName), truncate(userID, maxIdentifierLen), truncate(agentID, maxIdentifierLen))
}

// truncate limits s to n runes. Cutting on bytes could split a
// multi-byte rune and hand the provider invalid UTF-8.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	in.Currency = models.Currency(strings.ToUpper(strings.TrimSpace(string(in.Currency))))
	if err := in.validate(); err != nil {
		return nil, err
	}

	successRedirect := in.SuccessRedirectURL
	if successRedirect == "" {
		successRedirect = c.successBase
	}
	failureRedirect := in.FailureRedirectURL
	if failureRedirect == "" {
		failureRedirect = c.failureBase
	}

	externalID := int64(in.PaymentRecordID)
	req := createRequest{
		Amount:             in.Amount,
		Currency:           string(in.Currency),
		Invoice:            invoiceText(in.AgentName, in.UserID, in.AgentID),
		ExternalID:         externalID,
		SuccessCallbackURL: fmt.Sprintf("%s/payments/webhook/success?externalId=%d", c.successBase, externalID),
		FailureCallbackURL: fmt.Sprintf("%s/payments/webhook/failure?externalId=%d", c.failureBase, externalID),
		SuccessRedirectURL: successRedirect,
		FailureRedirectURL: failureRedirect,
	}

	var data struct {
		CollectURL string `json:"collectUrl"`
	}
	if err := c.post(ctx, "/payment/whish", req, &data); err != nil {
		return nil, err
	}
	if data.CollectURL == "" {
		return nil, fmt.Errorf("%w: provider returned no collect URL", ErrGatewayUnavailable)
	}

	return &CreatePaymentResult{
		CollectURL: data.CollectURL,
		ExternalID: strconv.FormatInt(externalID, 10),
	}, nil
}

// CheckStatus queries the provider for the collect status of one
// payment. The provider only accepts numeric correlation ids, which
// constrains externalId values to integer-representable strings.
func (c *Client) CheckStatus(ctx context.Context, externalID string, currency models.Currency) (*StatusResult, error) {
	id, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: externalId %q is not numeric", ErrInvalidRequest, externalID)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: currency must be one of USD, LBP, AED", ErrInvalidRequest)
	}

	var data struct {
		CollectStatus    string `json:"collectStatus"`
		PayerPhoneNumber string `json:"payerPhoneNumber"`
	}
	if err := c.post(ctx, "/payment/collect/status", statusRequest{
		Currency:   string(currency),
		ExternalID: id,
	}, &data); err != nil {
		return nil, err
	}

	return &StatusResult{
		CollectStatus:    data.CollectStatus,
		PayerPhoneNumber: data.PayerPhoneNumber,
		ExternalID:       externalID,
		Currency:         currency,
	}, nil
}

// Balance is informational only, no side effects.
func (c *Client) Balance(ctx context.Context) (*BalanceResult, error) {
	var data struct {
		Available decimal.Decimal `json:"available"`
		Pending   decimal.Decimal `json:"pending"`
		Total     decimal.Decimal `json:"total"`
		Currency  string          `json:"currency"`
	}
	if err := c.get(ctx, "/account/balance", &data); err != nil {
		return nil, err
	}
	return &BalanceResult{
		Available: data.Available,
		Pending:   data.Pending,
		Total:     data.Total,
		Currency:  models.Currency(data.Currency),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrInvalidRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("channel", c.channel)
	req.Header.Set("secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decoding provider response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 400 || !env.Status {
		msg := env.Code
		if msg == "" {
			msg = resp.Status
		}
		xlog.Warn("Whish gateway rejected request", "path", req.URL.Path, "status", resp.StatusCode, "code", env.Code)
		return fmt.Errorf("%w: %s", ErrGatewayUnavailable, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding provider payload: %v", ErrGatewayUnavailable, err)
		}
	}
	return nil
}
