/**
 * @description
 * This package provides a client for the MTN MoMo collection API. It
 * encapsulates sandbox provisioning (API user + key), bearer token
 * management, request-to-pay initiation, and settlement status polling.
 *
 * @notes
 * - RequestPayment generates the X-Reference-Id itself; MoMo adopts that id
 *   as the transaction identifier, so it is returned to the caller and later
 *   echoed back in webhook notifications.
 * - MoMo acknowledges an accepted collection request with 202; anything else
 *   is a non-acceptance, reported without error details being lost.
 * - The access token is cached and refreshed shortly before expiry; callers
 *   never manage authentication.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, sync, time: Standard Go libraries.
 */
package momoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Client is a client for the MTN MoMo collection API.
type Client struct {
	BaseURL           string
	SubscriptionKey   string
	UserReferenceID   string
	TargetEnvironment string
	CallbackURL       string
	HTTPClient        *http.Client

	newReferenceID func() string

	mu          sync.Mutex
	apiKey      string
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new MoMo API client. The apiKey may be empty when the
// sandbox provisioning flow (Provision) is used to generate one.
func NewClient(baseURL, subscriptionKey, userReferenceID, apiKey, targetEnvironment, callbackURL string, referenceIDs func() string) *Client {
	if targetEnvironment == "" {
		targetEnvironment = "sandbox"
	}
	return &Client{
		BaseURL:           baseURL,
		SubscriptionKey:   subscriptionKey,
		UserReferenceID:   userReferenceID,
		TargetEnvironment: targetEnvironment,
		CallbackURL:       callbackURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		newReferenceID: referenceIDs,
		apiKey:         apiKey,
	}
}

// PaymentRequestResult reports the outcome of a request-to-pay call.
// TransactionID is the reference the provider will use in all later
// settlement notifications for this collection.
type PaymentRequestResult struct {
	TransactionID string
	Accepted      bool
	StatusCode    int
}

// PaymentStatusResult reports the provider-side status of a collection.
// Status is one of PENDING, SUCCESSFUL, or FAILED; Reason carries the
// provider's failure detail when present.
type PaymentStatusResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse represents an error payload from the MoMo API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("momo api error: %s - %s", e.Code, e.Message)
	}
	return "unknown momo api error"
}

// Provision creates the sandbox API user and generates its API key. A 409 on
// user creation means the user already exists and is not an error. Intended
// for bootstrap; production deployments configure a pre-provisioned key.
func (c *Client) Provision(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"providerCallbackHost": c.CallbackURL,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1_0/apiuser", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)
	req.Header.Set("X-Reference-Id", c.UserReferenceID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("create api user: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		log.Printf("level=info component=momo_client msg=\"api user already exists\" user_reference_id=%s", c.UserReferenceID)
	default:
		return fmt.Errorf("create api user: unexpected status %d", resp.StatusCode)
	}

	return c.generateAPIKey(ctx)
}

func (c *Client) generateAPIKey(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1_0/apiuser/%s/apikey", c.BaseURL, c.UserReferenceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("generate api key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generate api key: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("generate api key: decode response: %w", err)
	}

	c.mu.Lock()
	c.apiKey = payload.APIKey
	c.accessToken = ""
	c.mu.Unlock()
	return nil
}

// token returns a valid bearer token, refreshing it when absent or close to
// expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("momo api key not configured; provision the client or set MOMO_API_KEY")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.UserReferenceID, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("token request: decode response: %w", err)
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// RequestPayment sends a request-to-pay for the given amount to the given
// phone number (MSISDN). The returned TransactionID is the reference the
// provider echoes back at settlement time; Accepted reflects the provider's
// 202 acknowledgment, and a non-accepted request must not be treated as a
// pending collection.
func (c *Client) RequestPayment(ctx context.Context, amount int64, currency, phoneNumber string) (*PaymentRequestResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	referenceID := c.newReferenceID()
	body, err := json.Marshal(map[string]interface{}{
		"amount":     strconv.FormatInt(amount, 10),
		"currency":   currency,
		"externalId": referenceID,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     phoneNumber,
		},
		"payerMessage": "Payment for subscription",
		"payeeNote":    "Thank you for your payment",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)
	req.Header.Set("X-Target-Environment", c.TargetEnvironment)
	req.Header.Set("X-Reference-Id", referenceID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to pay: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return &PaymentRequestResult{
		TransactionID: referenceID,
		Accepted:      resp.StatusCode == http.StatusAccepted,
		StatusCode:    resp.StatusCode,
	}, nil
}

// GetPaymentStatus polls the provider for the current status of a collection
// request previously created with RequestPayment.
func (c *Client) GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentStatusResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/collection/v1_0/requesttopay/%s", c.BaseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.SubscriptionKey)
	req.Header.Set("X-Target-Environment", c.TargetEnvironment)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("payment status: unexpected status %d", resp.StatusCode)
	}

	var result PaymentStatusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("payment status: decode response: %w", err)
	}
	return &result, nil
}
