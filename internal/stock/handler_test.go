package stock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, NewService(repo, nil, nil, nil)).MountRoutes(r)
	return r
}

func TestHandlerCreateDistribution(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/distributions", strings.NewReader(`{"outlet_id":1,"product_id":1,"quantity":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Message string       `json:"message"`
		Data    Distribution `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "Distribusi berhasil dicatat", body.Message)
	require.EqualValues(t, 3, body.Data.Quantity)
}

func TestHandlerCreateDistributionConflict(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	req := httptest.NewRequest(http.MethodPost, "/distributions", strings.NewReader(`{"outlet_id":1,"product_id":1,"quantity":11}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "Stok pusat tidak mencukupi")
}

func TestHandlerCreateDistributionRejectsBadPayload(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	req := httptest.NewRequest(http.MethodPost, "/distributions", strings.NewReader(`{"outlet_id":1,"product_id":1,"quantity":-2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerProductStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.distributions = append(repo.distributions, Distribution{ID: 1, OutletID: 1, ProductID: 1, Quantity: 8})
	repo.sold[pairKey(1, 1)] = 5
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/outlets/1/stock/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.EqualValues(t, 3, body["available"])

	req = httptest.NewRequest(http.MethodGet, "/outlets/abc/stock/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
