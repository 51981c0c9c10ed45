package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCoinBalance is granted to an account the first time it is touched.
const DefaultCoinBalance int64 = 100

// Ledger entry reasons.
const (
	CoinReasonManualAdd         = "manual_add"
	CoinReasonManualDeduct      = "manual_deduct"
	CoinReasonRequestCreation   = "request_creation"
	CoinReasonFulfillmentReward = "fulfillment_reward"
)

// CoinAccount maps to the `coin_accounts` table. Balance never goes below zero.
type CoinAccount struct {
	ID          uuid.UUID `json:"id"`
	Owner       UserRef   `json:"owner"`
	Balance     int64     `json:"coins"`
	LastUpdated time.Time `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CoinLedgerEntry records one balance mutation. Amount is signed.
type CoinLedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"accountId"`
	Owner        UserRef    `json:"owner"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balanceAfter"`
	Reason       string     `json:"reason"`
	ReferenceID  *uuid.UUID `json:"referenceId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CoinMutation describes a single debit or credit against an account.
type CoinMutation struct {
	Owner          UserRef
	Amount         int64
	Reason         string
	ReferenceID    *uuid.UUID
	DefaultBalance int64
}

const (
	RewardStatusPending  = "pending"
	RewardStatusCredited = "credited"
)

// CoinReward is the pending-then-credited record of a fulfillment reward.
// There is at most one per fulfillment.
type CoinReward struct {
	ID            uuid.UUID  `json:"id"`
	UserRequestID uuid.UUID  `json:"userRequestId"`
	FulfillmentID uuid.UUID  `json:"fulfillmentId"`
	Beneficiary   UserRef    `json:"beneficiary"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"lastError,omitempty"`
	CreditedAt    *time.Time `json:"creditedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// RewardReconcileResult summarizes one reconciliation sweep over pending rewards.
type RewardReconcileResult struct {
	Processed int `json:"processed"`
	Credited  int `json:"credited"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
