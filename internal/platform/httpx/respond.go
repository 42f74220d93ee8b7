// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct and validates it.
func DecodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return shared.NewDomainError(shared.ErrInvalidInput, "Format JSON tidak valid")
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return shared.NewDomainError(shared.ErrInvalidInput, "Field %s tidak valid (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return shared.NewDomainError(shared.ErrInvalidInput, "Input tidak valid")
	}
	return nil
}

// PathID parses a positive integer chi URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewDomainError(shared.ErrInvalidInput, "Parameter %s tidak valid", name)
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter, returning def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewDomainError(shared.ErrInvalidInput, "Parameter %s tidak valid", name)
	}
	return v, nil
}

// QueryInt64 parses an optional int64 query parameter; zero when absent.
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.NewDomainError(shared.ErrInvalidInput, "Parameter %s tidak valid", name)
	}
	return v, nil
}

// PaginationFromQuery reads page and per_page from the request.
func PaginationFromQuery(r *http.Request) (shared.Pagination, error) {
	page, err := QueryInt(r, "page", 1)
	if err != nil {
		return shared.Pagination{}, err
	}
	perPage, err := QueryInt(r, "per_page", 20)
	if err != nil {
		return shared.Pagination{}, err
	}
	if perPage > 200 {
		return shared.Pagination{}, shared.NewDomainError(shared.ErrInvalidInput, "per_page maksimal %d", 200)
	}
	return shared.NewPagination(page, perPage, 0), nil
}

// DateLayout is the calendar date format accepted in query strings.
const DateLayout = time.DateOnly

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, shared.NewDomainError(shared.ErrInvalidInput, "Tanggal %s tidak valid", name)
	}
	return t, nil
}

// ListFilterFromQuery reads outlet_id, from, to, page and per_page. The to
// date is inclusive through the end of that day.
func ListFilterFromQuery(r *http.Request) (shared.ListFilter, error) {
	var filter shared.ListFilter
	outletID, err := QueryInt64(r, "outlet_id")
	if err != nil {
		return filter, err
	}
	from, err := QueryDate(r, "from")
	if err != nil {
		return filter, err
	}
	to, err := QueryDate(r, "to")
	if err != nil {
		return filter, err
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return filter, shared.NewDomainError(shared.ErrInvalidInput, "Tanggal mulai melebihi tanggal akhir")
	}
	page, err := PaginationFromQuery(r)
	if err != nil {
		return filter, err
	}
	filter = shared.ListFilter{OutletID: outletID, From: from, To: to, Limit: page.PerPage, Offset: page.Offset()}
	return filter, nil
}

// Message is the envelope for simple success responses.
type Message struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Created writes a 201 response with the given message and payload.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Message{Message: message, Data: data})
}

