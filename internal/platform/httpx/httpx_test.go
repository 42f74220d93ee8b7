package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		shared.ErrNotFound:                 http.StatusNotFound,
		shared.ErrInvalidAmount:            http.StatusBadRequest,
		shared.ErrBillingError:             http.StatusUnprocessableEntity,
		shared.ErrInsufficientCentralStock: http.StatusConflict,
		shared.ErrOverpaymentRejected:      http.StatusConflict,
		shared.ErrStorageFailure:           http.StatusInternalServerError,
		shared.ErrAllocationInvariant:      http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, StatusFor(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestRespondErrorUsesSafeMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.NewDomainError(shared.ErrOverpaymentRejected, "Jumlah pembayaran (61) melebihi total tagihan (60)"))
	require.Equal(t, http.StatusConflict, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "Jumlah pembayaran (61) melebihi total tagihan (60)", body.Detail)
}

func TestDecodeJSONValidates(t *testing.T) {
	type payload struct {
		Quantity int64 `json:"quantity" validate:"required,gt=0"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))
	var p payload
	err := DecodeJSON(req, &p)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`))
	require.NoError(t, DecodeJSON(req, &p))
	require.EqualValues(t, 3, p.Quantity)
}

func TestPaginationFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=10", nil)
	p, err := PaginationFromQuery(req)
	require.NoError(t, err)
	require.Equal(t, 20, p.Offset())

	req = httptest.NewRequest(http.MethodGet, "/?per_page=500", nil)
	_, err = PaginationFromQuery(req)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestListFilterFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?outlet_id=4&from=2024-01-01&to=2024-01-31&page=2&per_page=5", nil)
	f, err := ListFilterFromQuery(req)
	require.NoError(t, err)
	require.EqualValues(t, 4, f.OutletID)
	require.Equal(t, "2024-01-01", f.From.Format(DateLayout))
	require.Equal(t, 23, f.To.Hour())
	require.Equal(t, 5, f.Limit)
	require.Equal(t, 5, f.Offset)

	req = httptest.NewRequest(http.MethodGet, "/?from=2024-02-01&to=2024-01-01", nil)
	_, err = ListFilterFromQuery(req)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
