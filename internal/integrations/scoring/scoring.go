package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/models"
)

// ErrUnknownTag is returned when the collaborator predicts a tag this service does not know
var ErrUnknownTag = errors.New("unknown tag")

// Client handles integration with the scoring collaborator
type Client struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
	log     *logrus.Logger
}

// NewClient initializes a new scoring client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: strings.TrimRight(cfg.Scoring.URL, "/") + "/predict",
		client: &http.Client{
			Timeout: cfg.Scoring.Timeout,
		},
		retries: cfg.Scoring.Retries,
		backoff: 200 * time.Millisecond,
		log:     log,
	}
}

type predictResponse struct {
	Tag          string `json:"tag"`
	PredictedTag string `json:"predicted_tag"`
	CreditScore  *int   `json:"creditScore"`
}

// statusError is a non-200 answer; 5xx answers are retried
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// Score asks the collaborator for a tag and credit score, retrying transport
// errors and 5xx answers
func (c *Client) Score(ctx context.Context, features models.ScoringFeatures) (*models.Score, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		body, err := c.sendRequest(ctx, payload)
		if err == nil {
			return c.parseResponse(body)
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code < http.StatusInternalServerError {
			break
		}
		c.log.WithError(err).WithField("attempt", attempt+1).Debug("Scoring request failed")
	}
	return nil, fmt.Errorf("scoring request failed: %w", lastErr)
}

// sendRequest posts the features to the predict endpoint
func (c *Client) sendRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Scoring response: %s", string(body))
	return body, nil
}

// parseResponse extracts the tag and optional score
func (c *Client) parseResponse(body []byte) (*models.Score, error) {
	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	tag := models.Tag(resp.Tag)
	if tag == "" {
		tag = models.Tag(resp.PredictedTag)
	}
	if _, ok := models.ScoreRangeFor(tag); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return &models.Score{Tag: tag, CreditScore: resp.CreditScore}, nil
}
