package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scholarbridge/request-service/internal/app"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: store.ErrInsufficientFunds, want: http.StatusBadRequest},
		{err: app.ErrInvalidAmount, want: http.StatusBadRequest},
		{err: app.ErrMissingFile, want: http.StatusBadRequest},
		{err: domain.ErrInvalidRequestType, want: http.StatusBadRequest},
		{err: domain.ErrInvalidRequestDetails, want: http.StatusBadRequest},
		{err: domain.ErrInvalidUserType, want: http.StatusBadRequest},
		{err: store.ErrRequestNotFound, want: http.StatusNotFound},
		{err: store.ErrFulfillmentNotFound, want: http.StatusNotFound},
		{err: store.ErrNotificationNotFound, want: http.StatusNotFound},
		{err: store.ErrRewardNotFound, want: http.StatusNotFound},
		{err: store.ErrSelfFulfillment, want: http.StatusForbidden},
		{err: app.ErrForbidden, want: http.StatusForbidden},
		{err: store.ErrRequestAlreadyFulfilled, want: http.StatusConflict},
		{err: &app.RateLimitedError{RetryAfterSeconds: 5}, want: http.StatusTooManyRequests},
		{err: fmt.Errorf("wrapped: %w", store.ErrRequestNotFound), want: http.StatusNotFound},
		{err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Fatalf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	h := NewHandlers(nil)

	rr := httptest.NewRecorder()
	h.writeServiceError(rr, "test", errors.New("pq: password authentication failed"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "Internal server error") || strings.Contains(body, "password") {
		t.Fatalf("expected internal details to be hidden, got %s", body)
	}

	rr = httptest.NewRecorder()
	h.writeServiceError(rr, "test", &app.RateLimitedError{RetryAfterSeconds: 17})
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "17" {
		t.Fatalf("expected 429 with Retry-After 17, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}
}

type saturatedLimiter struct{}

func (saturatedLimiter) CountUpload(ctx context.Context, uploader domain.UserRef) (app.UploadQuota, error) {
	return app.UploadQuota{Used: 1000, RetryAfter: 23 * time.Second}, nil
}

func TestFulfillWithDocument_RateLimited(t *testing.T) {
	server := newTestServer(t)
	server.service.SetUploadLimiter(saturatedLimiter{})
	server.service.ConfigureUploadRateLimit(1)

	studentToken := signToken(t, testJWTSecret, "student-1", "student")
	expertToken := signToken(t, testJWTSecret, "expert-1", "expert")

	rr, env := server.do(t, http.MethodPost, "/requests", studentToken, map[string]interface{}{
		"requestType": "Data",
		"details":     map[string]interface{}{"data": map[string]interface{}{"description": "Hourly rainfall"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var created domain.UserRequest
	decodeData(t, env, &created)

	rr, _ = server.do(t, http.MethodPost, "/fulfillments/document", expertToken, map[string]interface{}{
		"userRequestId": created.ID.String(),
		"fileUrl":       "https://files.example.com/rainfall.csv",
	})
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "23" {
		t.Fatalf("expected 429 with Retry-After 23, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins(" https://app.example.com , ,http://localhost:3000")
	if len(got) != 2 || got[0] != "https://app.example.com" || got[1] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", got)
	}
	if fallback := splitOrigins(""); len(fallback) != 2 {
		t.Fatalf("expected wildcard fallback, got %v", fallback)
	}
}
