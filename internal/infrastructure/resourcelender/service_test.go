package resourcelender_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/resourcelender"
)

func TestCapacity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/capacity", r.URL.Path)
			require.Equal(t, "oracle1", r.URL.Query().Get("account"))
			require.Equal(t, "cpu", r.URL.Query().Get("resource"))
			// nolint
			json.NewEncoder(w).Encode(map[string]int64{"available": 120, "max": 1000})
		},
	))
	defer server.Close()

	lender := resourcelender.NewService(server.URL, "oracle1")
	capacity, err := lender.Capacity(context.Background(), "cpu")
	require.NoError(t, err)
	require.Equal(t, int64(120), capacity.Available)
	require.Equal(t, int64(1000), capacity.Max)
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/balance", r.URL.Path)
			// nolint
			json.NewEncoder(w).Encode(map[string]string{"balance": "12.3456 TLOS"})
		},
	))
	defer server.Close()

	lender := resourcelender.NewService(server.URL, "oracle1")
	balance, err := lender.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, "12.3456 TLOS", balance.String())
}

func TestBorrowRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "insufficient funds", http.StatusPaymentRequired)
		},
	))
	defer server.Close()

	lender := resourcelender.NewService(server.URL, "oracle1")
	balance, err := lender.Balance(context.Background())
	require.Error(t, err)
	require.Empty(t, balance.Amount)
}
