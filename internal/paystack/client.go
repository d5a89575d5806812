package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProvider wraps every failure returned by the Paystack API so callers can
// branch with errors.As without poking at transport detail.
type ErrProvider struct {
	Op      string
	Status  int
	Message string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("paystack %s failed: status %d: %s", e.Op, e.Status, e.Message)
}

// Client calls the Paystack REST API. Amounts are in kobo throughout.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient constructs a Paystack client with a bounded request timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InitializeRequest carries the data for a hosted payment session.
type InitializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// InitializeResponse is the hosted session handle Paystack returns.
type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyData is the subset of a transaction verification the engine needs.
type VerifyData struct {
	Status string
	Amount int64
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction requests a hosted payment session for the reference.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InitializeResponse{}, err
	}

	data, err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), "initialize")
	if err != nil {
		return InitializeResponse{}, err
	}

	var payload struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return InitializeResponse{}, &ErrProvider{Op: "initialize", Message: "malformed response data"}
	}
	return InitializeResponse{
		AuthorizationURL: payload.AuthorizationURL,
		AccessCode:       payload.AccessCode,
		Reference:        payload.Reference,
	}, nil
}

// VerifyTransaction fetches the provider-side state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (VerifyData, error) {
	data, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, "verify")
	if err != nil {
		return VerifyData{}, err
	}

	var payload struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return VerifyData{}, &ErrProvider{Op: "verify", Message: "malformed response data"}
	}
	return VerifyData{Status: payload.Status, Amount: payload.Amount}, nil
}

// VerifySignature checks the x-paystack-signature header: an HMAC-SHA512 of
// the raw body keyed with the account secret, hex encoded.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, op string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ErrProvider{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ErrProvider{Op: op, Status: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ErrProvider{Op: op, Status: resp.StatusCode, Message: "malformed response"}
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return nil, &ErrProvider{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}
