package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/driverhub/internal/valuation/handler"
	"github.com/example/driverhub/internal/valuation/routing"
	valsvc "github.com/example/driverhub/internal/valuation/service"
)

func newValuationServer(t *testing.T, matrix routing.Matrix) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(matrix)
	}))
	t.Cleanup(upstream.Close)

	svc := valsvc.New(routing.NewClient(upstream.URL, time.Second, nil), nil, 0, nil)
	srv := httptest.NewServer(handler.New(svc).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postQuote(t *testing.T, srv *httptest.Server, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(srv.URL+"/v1/valuation", "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newValuationServer(t, routing.Matrix{DistanceKm: 10, DurationMinutes: 18})

	resp, body := postQuote(t, srv, map[string]string{
		"from_address": "1 Market St",
		"to_address":   "100 Broadway",
		"vehicle_type": "sedan",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 140, body["cost"].(float64), 1e-9)
	require.InDelta(t, 161, body["total_cost"].(float64), 1e-9)
}

func TestQuoteEndpointValidation(t *testing.T) {
	srv := newValuationServer(t, routing.Matrix{DistanceKm: 10})

	resp, _ := postQuote(t, srv, map[string]string{
		"to_address":   "100 Broadway",
		"vehicle_type": "sedan",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postQuote(t, srv, map[string]string{
		"from_address": "1 Market St",
		"to_address":   "100 Broadway",
		"vehicle_type": "spaceship",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteEndpointRoutingDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	upstream.Close()

	svc := valsvc.New(routing.NewClient(upstream.URL, time.Second, nil), nil, 0, nil)
	srv := httptest.NewServer(handler.New(svc).Router())
	t.Cleanup(srv.Close)

	resp, _ := postQuote(t, srv, map[string]string{
		"from_address": "1 Market St",
		"to_address":   "100 Broadway",
		"vehicle_type": "sedan",
	})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
