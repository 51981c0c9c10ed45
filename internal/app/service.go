/**
 * @description
 * This file contains the core business logic for the request service. The `Service`
 * struct coordinates the coin ledger, the request lifecycle, document fulfillment,
 * and reward crediting on top of the repository.
 *
 * Key features:
 * - Balance changes are single conditional updates in the store; nothing here reads a
 *   balance and writes it back.
 * - Notifications, emails, and events are recorded as outbox tasks in the same
 *   transaction as the state change and delivered later by the OutboxDispatcher.
 * - Fulfillment rewards are recorded as pending and credited after commit; the
 *   reconciliation job picks up any that failed.
 *
 * @dependencies
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

const (
	DefaultFulfillmentReward = 10

	// MaxCoinAmount bounds a single add or deduct.
	MaxCoinAmount int64 = 1_000_000
)

var (
	ErrInvalidAmount = errors.New("amount must be a whole number of coins between 1 and 1000000")
	ErrMissingFile   = errors.New("fileUrl is required")
	ErrForbidden     = errors.New("not allowed to access this resource")
	ErrRateLimited   = errors.New("too many requests")
)

// RateLimitedError carries the wait time for a rejected call. It matches ErrRateLimited.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry after %ds", ErrRateLimited.Error(), e.RetryAfterSeconds)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// UploadQuota is one uploader's usage of the current limiter window.
type UploadQuota struct {
	Used       int
	RetryAfter time.Duration
}

// UploadLimiter counts document uploads per uploader.
type UploadLimiter interface {
	CountUpload(ctx context.Context, uploader domain.UserRef) (UploadQuota, error)
}

// Options configures coin amounts and event routing.
type Options struct {
	DefaultCoinBalance int64
	FulfillmentReward  int64
	RequestCosts       map[domain.RequestType]int64
	EventsExchange     string
}

// Service provides the core business logic for coins and requests.
type Service struct {
	repo                     store.Repository
	defaultCoinBalance       int64
	fulfillmentReward        int64
	requestCosts             map[domain.RequestType]int64
	eventsExchange           string
	uploadLimiter            UploadLimiter
	uploadRateLimitPerMinute int
	now                      func() time.Time
}

// NewService creates a new request service instance.
func NewService(repo store.Repository, opts Options) *Service {
	defaultBalance := opts.DefaultCoinBalance
	if defaultBalance < 0 {
		defaultBalance = domain.DefaultCoinBalance
	}
	reward := opts.FulfillmentReward
	if reward <= 0 {
		reward = DefaultFulfillmentReward
	}
	costs := make(map[domain.RequestType]int64, len(opts.RequestCosts))
	for requestType, cost := range opts.RequestCosts {
		if cost > 0 {
			costs[requestType] = cost
		}
	}

	return &Service{
		repo:               repo,
		defaultCoinBalance: defaultBalance,
		fulfillmentReward:  reward,
		requestCosts:       costs,
		eventsExchange:     strings.TrimSpace(opts.EventsExchange),
		now:                time.Now,
	}
}

// SetUploadLimiter installs the distributed counter used for document uploads.
func (s *Service) SetUploadLimiter(limiter UploadLimiter) {
	s.uploadLimiter = limiter
}

// ConfigureUploadRateLimit sets how many uploads one user may make per minute. Zero disables the limit.
func (s *Service) ConfigureUploadRateLimit(perMinute int) {
	if perMinute < 0 {
		perMinute = 0
	}
	s.uploadRateLimitPerMinute = perMinute
}

// RequestCost returns the coin price of opening a request of the given type.
func (s *Service) RequestCost(requestType domain.RequestType) int64 {
	return s.requestCosts[requestType]
}

// FulfillmentReward returns the number of coins credited per confirmed fulfillment.
func (s *Service) FulfillmentReward() int64 {
	return s.fulfillmentReward
}
