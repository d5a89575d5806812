package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitializeTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Amount != 5_000 || req.Reference != "dep_1" {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "dep_1",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_secret", time.Second)
	res, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:     "ada@example.com",
		Amount:    5_000,
		Reference: "dep_1",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Fatalf("unexpected authorization url %q", res.AuthorizationURL)
	}
}

func TestInitializeTransactionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_bad", time.Second)
	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{Amount: 100, Reference: "dep_x"})
	var provider *ErrProvider
	if !errors.As(err, &provider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if provider.Status != http.StatusUnauthorized || provider.Message != "Invalid key" {
		t.Fatalf("unexpected detail: %+v", provider)
	}
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/dep_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "success", "amount": 5000},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_secret", time.Second)
	data, err := client.VerifyTransaction(context.Background(), "dep_1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if data.Status != "success" || data.Amount != 5_000 {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("http://unused", "sk_test_secret", time.Second)
	payload := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(payload, signature) {
		t.Fatal("valid signature rejected")
	}
	tampered := []byte(signature)
	if tampered[0] == '0' {
		tampered[0] = '1'
	} else {
		tampered[0] = '0'
	}
	if client.VerifySignature(payload, string(tampered)) {
		t.Fatal("tampered signature accepted")
	}
	if client.VerifySignature([]byte(`{"event":"tampered"}`), signature) {
		t.Fatal("tampered payload accepted")
	}
}
