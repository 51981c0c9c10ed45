package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scholarbridge/request-service/internal/domain"
)

func TestConfirmFulfillment_FailedCreditIsReconciledLater(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	req := createDocumentRequest(t, service, testStudent)
	uploadDocument(t, service, req.ID, testExpert)

	repo.CreditHook = func(mutation domain.CoinMutation) error {
		return errors.New("connection reset")
	}
	confirmed, err := service.ConfirmFulfillment(ctx, testStudent, req.ID)
	if err != nil {
		t.Fatalf("expected confirmation to succeed despite credit failure, got %v", err)
	}
	if !confirmed.IsFulfilled {
		t.Fatalf("expected request to be fulfilled")
	}
	if got := balanceOf(t, service, testExpert); got != 100 {
		t.Fatalf("expected no credit yet, balance %d", got)
	}

	pending, err := repo.ListPendingCoinRewards(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListPendingCoinRewards returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending reward, got %d", len(pending))
	}
	if pending[0].Attempts != 1 || pending[0].LastError == nil {
		t.Fatalf("expected the failed attempt to be recorded, got %+v", pending[0])
	}

	result, err := service.ReconcilePendingRewards(ctx, 10)
	if err != nil {
		t.Fatalf("ReconcilePendingRewards returned error: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("expected fresh rewards to be left alone, processed %d", result.Processed)
	}

	repo.CreditHook = nil
	service.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	result, err = service.ReconcilePendingRewards(ctx, 10)
	if err != nil {
		t.Fatalf("ReconcilePendingRewards returned error: %v", err)
	}
	if result.Processed != 1 || result.Credited != 1 || result.Failed != 0 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}
	if got := balanceOf(t, service, testExpert); got != 110 {
		t.Fatalf("expected reward to be credited, balance %d", got)
	}

	result, err = service.ReconcilePendingRewards(ctx, 10)
	if err != nil {
		t.Fatalf("ReconcilePendingRewards returned error: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("expected nothing left to reconcile, processed %d", result.Processed)
	}
	if got := balanceOf(t, service, testExpert); got != 110 {
		t.Fatalf("expected a single credit, balance %d", got)
	}
}

func TestReconcilePendingRewards_CountsFailures(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	req := createDocumentRequest(t, service, testStudent)
	uploadDocument(t, service, req.ID, testExpert)

	repo.CreditHook = func(mutation domain.CoinMutation) error {
		return errors.New("deadlock detected")
	}
	if _, err := service.ConfirmFulfillment(ctx, testStudent, req.ID); err != nil {
		t.Fatalf("ConfirmFulfillment returned error: %v", err)
	}

	service.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	result, err := service.ReconcilePendingRewards(ctx, 0)
	if err != nil {
		t.Fatalf("ReconcilePendingRewards returned error: %v", err)
	}
	if result.Processed != 1 || result.Failed != 1 || result.Credited != 0 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}

	pending, err := repo.ListPendingCoinRewards(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListPendingCoinRewards returned error: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 2 {
		t.Fatalf("expected reward to stay pending with two attempts, got %+v", pending)
	}
}

func TestApplyReward_IsIdempotent(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	req := createDocumentRequest(t, service, testStudent)
	uploadDocument(t, service, req.ID, testExpert)

	repo.CreditHook = func(mutation domain.CoinMutation) error {
		return errors.New("timeout")
	}
	if _, err := service.ConfirmFulfillment(ctx, testStudent, req.ID); err != nil {
		t.Fatalf("ConfirmFulfillment returned error: %v", err)
	}
	repo.CreditHook = nil

	pending, err := repo.ListPendingCoinRewards(ctx, time.Now().Add(time.Hour), 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending reward, got %d (err=%v)", len(pending), err)
	}
	rewardID := pending[0].ID

	reward, credited, err := service.ApplyReward(ctx, rewardID)
	if err != nil || !credited {
		t.Fatalf("expected first apply to credit, credited=%t err=%v", credited, err)
	}
	if reward.Status != domain.RewardStatusCredited || reward.CreditedAt == nil {
		t.Fatalf("unexpected reward after credit: %+v", reward)
	}

	_, credited, err = service.ApplyReward(ctx, rewardID)
	if err != nil || credited {
		t.Fatalf("expected second apply to be a no-op, credited=%t err=%v", credited, err)
	}
	if got := balanceOf(t, service, testExpert); got != 110 {
		t.Fatalf("expected balance 110, got %d", got)
	}

	entries, err := service.History(ctx, testExpert, 10, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != domain.CoinReasonFulfillmentReward || entries[0].Amount != 10 {
		t.Fatalf("expected one fulfillment_reward entry, got %+v", entries)
	}
}
