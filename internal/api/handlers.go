/**
 * @description
 * This file contains the shared plumbing for the request-service's HTTP handlers: the
 * handler set, JSON envelopes, and the mapping from service errors to HTTP statuses.
 * Handlers parse the request, call the application service, and write the response.
 *
 * @dependencies
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/app"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

const maxRequestBodyBytes = 1 << 20

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service   *app.Service
	validator *payloadValidator
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{
		service:   service,
		validator: newPayloadValidator(),
	}
}

type successResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusForError maps service and store errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrMissingFile),
		errors.Is(err, domain.ErrInvalidRequestType),
		errors.Is(err, domain.ErrInvalidRequestDetails),
		errors.Is(err, domain.ErrInvalidUserType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRequestNotFound),
		errors.Is(err, store.ErrFulfillmentNotFound),
		errors.Is(err, store.ErrNotificationNotFound),
		errors.Is(err, store.ErrRewardNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSelfFulfillment),
		errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrRequestAlreadyFulfilled):
		return http.StatusConflict
	case errors.Is(err, app.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs the failure and writes the mapped status. Internal errors are not echoed.
func (h *Handlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		h.writeError(w, status, "Internal server error")
		return
	}

	var limited *app.RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
	}
	log.Printf("level=warn component=api endpoint=%s outcome=reject status=%d err=%v", endpoint, status, err)
	h.writeError(w, status, err.Error())
}

// authenticatedUser reads the caller from the context; the auth middleware guarantees it is set.
func (h *Handlers) authenticatedUser(w http.ResponseWriter, r *http.Request) (domain.UserRef, bool) {
	user, ok := GetAuthenticatedUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user from context")
		return domain.UserRef{}, false
	}
	return user, true
}

// decodeAndValidate reads a JSON body into dst and runs the struct validations on it.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, endpoint string, dst interface{}) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=invalid_json err=%v", endpoint, err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if message := h.validator.Check(dst); message != "" {
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=validation_failed detail=%q", endpoint, message)
		h.writeError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

func (h *Handlers) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalPositiveInt(raw string, defaultValue int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("must be >= 0")
	}
	return value, nil
}

// parsePagination reads limit and offset query parameters.
func (h *Handlers) parsePagination(w http.ResponseWriter, r *http.Request, defaultLimit int) (limit int, offset int, ok bool) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), defaultLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return 0, 0, false
	}
	offset, err = parseOptionalPositiveInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return 0, 0, false
	}
	return limit, offset, true
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handlers) writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.writeJSON(w, status, successResponse{Success: true, Message: message, Data: data})
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	writeErrorResponse(w, status, message)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Success: false, Message: message})
}
