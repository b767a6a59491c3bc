package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/fuelrecon/internal/api/dto"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Base provides shared functionality for all handlers.
type Base struct {
	logger *slog.Logger
}

// NewBase creates a new base handler.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps an engine error to its HTTP status. Server-side
// failures are logged since the response hides them.
func (b *Base) WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := dto.ErrorFor(err)
	if status >= http.StatusInternalServerError {
		b.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	b.WriteError(w, status, body)
}

// DecodeJSON decodes an optional JSON body into v. An empty body leaves v
// untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses an optional boolean query parameter.
func ParseBoolParam(r *http.Request, name string) (*bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil, errInvalidParam(name, val)
	}
	return &parsed, nil
}

// ParseInt64Param parses an optional ID query parameter.
func ParseInt64Param(r *http.Request, name string) (*int64, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, errInvalidParam(name, val)
	}
	return &parsed, nil
}

// ParseTimeParam parses an optional RFC 3339 timestamp or YYYY-MM-DD date.
// A bare date used as an upper bound covers the whole day.
func ParseTimeParam(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q (want RFC 3339 or YYYY-MM-DD)", name, val)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// PathID parses a numeric URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errInvalidParam(name, idStr)
	}
	return id, nil
}

func errInvalidParam(name, value string) error {
	return fmt.Errorf("invalid %s: %q", name, value)
}
