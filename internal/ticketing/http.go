package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient implements Creator against an external work-order API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a ticketing client for the given API base URL.
// timeout bounds each create call; a timeout surfaces as an error so the
// caller can fall back.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type createResponse struct {
	Data struct {
		OrderID string `json:"order_id"`
	} `json:"data"`
}

func (c *HTTPClient) Create(ctx context.Context, req CreateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshalling work order request: %w", err)
	}

	url := fmt.Sprintf("%s/api/workorders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("work order request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading work order response: %w", err)
	}

	if httpResp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ticketing API returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp createResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshalling work order response: %w", err)
	}
	if resp.Data.OrderID == "" {
		return "", fmt.Errorf("ticketing API returned no order id")
	}

	return resp.Data.OrderID, nil
}
