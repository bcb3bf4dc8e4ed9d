package refund

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiklii/internal/order/app/core"
)

// Client records refund intents with the payment service over HTTP. The
// payment service decides whether the order actually has a captured payment.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) core.IRefundRequester {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) RequestRefund(ctx context.Context, orderID int64, reason string) error {
	payload, err := json.Marshal(map[string]any{
		"order_id": orderID,
		"reason":   reason,
	})
	if err != nil {
		return fmt.Errorf("marshal refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refunds", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request refund for order %d: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("refund request for order %d rejected: %s", orderID, resp.Status)
	}
	return nil
}
