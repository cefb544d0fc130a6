package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client pushes balance changes to the account service that owns child balances
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new balance client for the service at baseURL
func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		url: strings.TrimRight(baseURL, "/") + "/auth/assign-pocket-money",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type adjustRequest struct {
	ChildID string  `json:"childId"`
	Amount  float64 `json:"amount"`
}

// AdjustBalance adds delta (negative for spending) to the child's balance
func (c *Client) AdjustBalance(ctx context.Context, childID string, delta float64) error {
	payload, err := json.Marshal(adjustRequest{ChildID: childID, Amount: delta})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	c.log.WithFields(logrus.Fields{"child_id": childID, "delta": delta}).Debug("Child balance adjusted")
	return nil
}
