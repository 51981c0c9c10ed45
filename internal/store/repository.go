/**
 * @description
 * This file defines the `Repository` interface, the contract for every data access
 * operation the request service needs. Business logic in `internal/app` depends only on
 * this interface so it can run against PostgreSQL in production and the in-memory
 * implementation in tests.
 *
 * @notes
 * - Every state transition that produces side effects takes the outbox tasks as an
 *   argument and writes them in the same transaction as the transition itself.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
)

var (
	ErrInsufficientFunds       = errors.New("insufficient coins")
	ErrRequestNotFound         = errors.New("request not found or already confirmed")
	ErrRequestAlreadyFulfilled = errors.New("request already fulfilled")
	ErrSelfFulfillment         = errors.New("cannot fulfill your own request")
	ErrFulfillmentNotFound     = errors.New("fulfillment not found")
	ErrRewardNotFound          = errors.New("coin reward not found")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrContactNotFound         = errors.New("user contact not found")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Coin ledger methods
	GetOrCreateCoinAccount(ctx context.Context, owner domain.UserRef, defaultBalance int64) (*domain.CoinAccount, error)
	DebitCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error)
	CreditCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error)
	ListCoinLedgerEntries(ctx context.Context, owner domain.UserRef, limit, offset int) ([]domain.CoinLedgerEntry, error)

	// User request methods
	CreateUserRequest(ctx context.Context, req *domain.UserRequest, cost *domain.CoinMutation, tasks []domain.OutboxTask) (*domain.UserRequest, error)
	FindUserRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.UserRequest, error)
	ListUserRequestsByRequester(ctx context.Context, requester domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error)
	ListOpenUserRequests(ctx context.Context, viewer domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error)
	SoftDeleteUserRequest(ctx context.Context, requestID uuid.UUID, requester domain.UserRef) (bool, error)
	FulfillUserRequest(ctx context.Context, params FulfillUserRequestParams) (*domain.UserRequest, *domain.Fulfillment, error)
	ConfirmUserRequestFulfillment(ctx context.Context, params ResolveFulfillmentParams) (*domain.UserRequest, *domain.CoinReward, error)
	RevertUserRequestFulfillment(ctx context.Context, params ResolveFulfillmentParams) (*domain.UserRequest, error)

	// Fulfillment methods
	FindFulfillmentByID(ctx context.Context, fulfillmentID uuid.UUID) (*domain.Fulfillment, error)
	RecordFulfillmentAccess(ctx context.Context, fulfillmentID uuid.UUID, access domain.FulfillmentAccess) (*domain.Fulfillment, error)

	// Coin reward methods
	FindCoinRewardByID(ctx context.Context, rewardID uuid.UUID) (*domain.CoinReward, error)
	ListPendingCoinRewards(ctx context.Context, createdBefore time.Time, limit int) ([]domain.CoinReward, error)
	ApplyCoinReward(ctx context.Context, rewardID uuid.UUID, defaultBalance int64, tasks []domain.OutboxTask) (*domain.CoinReward, *domain.CoinAccount, error)
	RecordCoinRewardFailure(ctx context.Context, rewardID uuid.UUID, reason string) error

	// Notification methods
	CreateNotification(ctx context.Context, item domain.Notification) error
	ListNotifications(ctx context.Context, recipient domain.UserRef, opts domain.NotificationListOptions) ([]domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipient domain.UserRef) (int64, error)
	MarkNotificationRead(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, recipient domain.UserRef) (int64, error)
	SoftDeleteNotification(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error)
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Side-effect outbox methods
	EnqueueOutboxTasks(ctx context.Context, tasks []domain.OutboxTask) error
	ClaimOutboxTasks(ctx context.Context, limit int, staleAfterSeconds int) ([]domain.OutboxTask, error)
	MarkOutboxTaskDone(ctx context.Context, taskID int64) error
	MarkOutboxTaskFailed(ctx context.Context, taskID int64, retryAfterSeconds int, reason string) error

	// Contact directory methods
	FindUserContact(ctx context.Context, user domain.UserRef) (*domain.UserContact, error)
}

// FulfillUserRequestParams carries a validated document upload into the store.
type FulfillUserRequestParams struct {
	UserRequestID   uuid.UUID
	Fulfillment     domain.Fulfillment
	Attachment      domain.Attachment
	ResponseMessage string
	Tasks           []domain.OutboxTask
}

// ResolveFulfillmentParams carries a confirm or reject decision. ExpectedFulfillmentID pins the
// decision to the fulfillment the requester saw; if another upload replaced it, nothing matches.
type ResolveFulfillmentParams struct {
	UserRequestID         uuid.UUID
	Requester             domain.UserRef
	ExpectedFulfillmentID *uuid.UUID
	RewardAmount          int64
	Tasks                 []domain.OutboxTask
}

// ClampLimit bounds page sizes to [1, max] with a fallback for non-positive input.
func ClampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
