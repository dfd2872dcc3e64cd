package routing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/driverhub/internal/valuation/routing"
)

func TestDistanceMatrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/matrix", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "1 Market St", req["fromAddress"])
		require.Equal(t, "100 Broadway", req["toAddress"])

		_ = json.NewEncoder(w).Encode(routing.Matrix{DistanceKm: 12.5, DurationMinutes: 22})
	}))
	defer srv.Close()

	client := routing.NewClient(srv.URL, time.Second, nil)
	matrix, err := client.DistanceMatrix(context.Background(), "1 Market St", "100 Broadway")
	require.NoError(t, err)
	require.InDelta(t, 12.5, matrix.DistanceKm, 1e-9)
	require.InDelta(t, 22, matrix.DurationMinutes, 1e-9)
}

func TestDistanceMatrixUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := routing.NewClient(srv.URL, time.Second, nil)
	_, err := client.DistanceMatrix(context.Background(), "a", "b")
	var unavailable *routing.ErrUnavailable
	require.ErrorAs(t, err, &unavailable)
}

func TestDistanceMatrixConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := routing.NewClient(srv.URL, time.Second, nil)
	_, err := client.DistanceMatrix(context.Background(), "a", "b")
	var unavailable *routing.ErrUnavailable
	require.ErrorAs(t, err, &unavailable)
}
