package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"consigli/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Predict(t *testing.T) {
	var gotDescription string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDescription = req["description"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":" Food "}`))
	}))
	defer srv.Close()

	category, err := NewClient(srv.URL+"/", time.Second).Predict(context.Background(), "pizza margherita")
	require.NoError(t, err)
	assert.Equal(t, "Food", category)
	assert.Equal(t, "pizza margherita", gotDescription)
}

func TestClient_PredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		timeout time.Duration
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "malformed json", status: http.StatusOK, body: `{"category":`},
		{name: "missing category", status: http.StatusOK, body: `{"label":"Food"}`},
		{name: "blank category", status: http.StatusOK, body: `{"category":"   "}`},
		{name: "null category", status: http.StatusOK, body: `{"category":null}`},
		{name: "timeout", status: http.StatusOK, body: `{"category":"Food"}`, delay: 200 * time.Millisecond, timeout: 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			category, err := NewClient(srv.URL, timeout).Predict(context.Background(), "anything")
			assert.ErrorIs(t, err, core.ErrClassificationUnavailable)
			assert.Empty(t, category)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 100*time.Millisecond).Predict(context.Background(), "coffee")
	assert.ErrorIs(t, err, core.ErrClassificationUnavailable)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient("http://classifier:8000", 0)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, "http://classifier:8000/predict", c.endpoint)
}
