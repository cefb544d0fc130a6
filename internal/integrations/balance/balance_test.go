package balance

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAdjustBalance(t *testing.T) {
	var got adjustRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/assign-pocket-money", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", quietLogger())
	require.NoError(t, c.AdjustBalance(t.Context(), "child-1", -25))
	assert.Equal(t, "child-1", got.ChildID)
	assert.Equal(t, -25.0, got.Amount)
}

func TestAdjustBalance_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := NewClient(server.URL, quietLogger()).AdjustBalance(t.Context(), "child-1", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
