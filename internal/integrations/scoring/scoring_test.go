package scoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/models"
)

func newTestClient(t *testing.T, url string, timeout time.Duration, retries int) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Scoring: config.Scoring{URL: url, Timeout: timeout, Retries: retries}}
	c := NewClient(cfg, logger)
	c.backoff = time.Millisecond
	return c
}

func TestScore_SendsFeaturesAndParsesScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var features models.ScoringFeatures
		require.NoError(t, json.NewDecoder(r.Body).Decode(&features))
		assert.Equal(t, 1000.0, features.TotalIncome)
		assert.Equal(t, models.CategoryFood, features.TopCategory)

		_, _ = w.Write([]byte(`{"tag":"Top Saver","creditScore":91}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second, 0)
	score, err := c.Score(t.Context(), models.ScoringFeatures{TotalIncome: 1000, TopCategory: models.CategoryFood})
	require.NoError(t, err)
	assert.Equal(t, models.TagTopSaver, score.Tag)
	require.NotNil(t, score.CreditScore)
	assert.Equal(t, 91, *score.CreditScore)
}

func TestScore_AcceptsPredictedTagWithoutScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predicted_tag":"Balanced"}`))
	}))
	defer server.Close()

	score, err := newTestClient(t, server.URL, time.Second, 0).Score(t.Context(), models.ScoringFeatures{})
	require.NoError(t, err)
	assert.Equal(t, models.TagBalanced, score.Tag)
	assert.Nil(t, score.CreditScore)
}

func TestScore_UnknownTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag":"Super Saver","creditScore":99}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, time.Second, 0).Score(t.Context(), models.ScoringFeatures{})
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestScore_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tag":"Overspender","creditScore":33}`))
	}))
	defer server.Close()

	score, err := newTestClient(t, server.URL, time.Second, 2).Score(t.Context(), models.ScoringFeatures{})
	require.NoError(t, err)
	assert.Equal(t, models.TagOverspender, score.Tag)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScore_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, time.Second, 3).Score(t.Context(), models.ScoringFeatures{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestScore_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	started := time.Now()
	_, err := newTestClient(t, server.URL, 50*time.Millisecond, 1).Score(t.Context(), models.ScoringFeatures{})
	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)
}
