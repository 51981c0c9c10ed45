package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

func TestGetBalance_NewUserIsPersistedWithDefault(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.GetBalance(ctx, testStudent)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if first.Balance != 100 {
		t.Fatalf("expected default balance 100, got %d", first.Balance)
	}

	second, err := service.GetBalance(ctx, testStudent)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if second.Balance != 100 || second.ID != first.ID {
		t.Fatalf("expected the same persisted account, got id=%s balance=%d", second.ID, second.Balance)
	}

	if _, err := service.Deduct(ctx, testStudent, 40, ""); err != nil {
		t.Fatalf("Deduct returned error: %v", err)
	}
	if got := balanceOf(t, service, testStudent); got != 60 {
		t.Fatalf("expected persisted balance 60 after deduct, got %d", got)
	}
}

func TestGetBalance_SeparatesUserModels(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	student := domain.UserRef{ID: "shared-id", Model: domain.UserModelStudent}
	profile := domain.UserRef{ID: "shared-id", Model: domain.UserModelProfile}

	if _, err := service.Deduct(ctx, student, 30, ""); err != nil {
		t.Fatalf("Deduct returned error: %v", err)
	}
	if got := balanceOf(t, service, profile); got != 100 {
		t.Fatalf("expected profile account untouched at 100, got %d", got)
	}
}

func TestDeduct_InsufficientFundsScenario(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.Deduct(ctx, testStudent, 85, ""); err != nil {
		t.Fatalf("setup deduct failed: %v", err)
	}

	steps := []struct {
		name        string
		amount      int64
		wantErr     error
		wantBalance int64
	}{
		{name: "deduct more than balance fails", amount: 20, wantErr: store.ErrInsufficientFunds, wantBalance: 15},
		{name: "deduct exact balance succeeds", amount: 15, wantBalance: 0},
		{name: "deduct from empty balance fails", amount: 1, wantErr: store.ErrInsufficientFunds, wantBalance: 0},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			_, err := service.Deduct(ctx, testStudent, step.amount, "")
			if step.wantErr != nil {
				if !errors.Is(err, step.wantErr) {
					t.Fatalf("expected %v, got %v", step.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := balanceOf(t, service, testStudent); got != step.wantBalance {
				t.Fatalf("expected balance %d, got %d", step.wantBalance, got)
			}
		})
	}
}

func TestDeduct_ConcurrentCallsNeverOverdraw(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	const workers = 40
	const amount = int64(7)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Deduct(ctx, testStudent, amount, "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, store.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	final := balanceOf(t, service, testStudent)
	if final < 0 {
		t.Fatalf("balance went negative: %d", final)
	}
	if final != 100-succeeded*amount {
		t.Fatalf("expected balance %d after %d successful deducts, got %d", 100-succeeded*amount, succeeded, final)
	}
	if succeeded != 14 {
		t.Fatalf("expected 14 successful deducts, got %d", succeeded)
	}
}

func TestAddAndDeduct_RejectOutOfRangeAmounts(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -5, MaxCoinAmount + 1, math.MaxInt64} {
		if _, err := service.Add(ctx, testStudent, amount, ""); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("Add(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := service.Deduct(ctx, testStudent, amount, ""); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("Deduct(%d): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if got := balanceOf(t, service, testStudent); got != domain.DefaultCoinBalance {
		t.Fatalf("expected balance to stay %d, got %d", domain.DefaultCoinBalance, got)
	}

	account, err := service.Add(ctx, testStudent, MaxCoinAmount, "")
	if err != nil {
		t.Fatalf("Add(MaxCoinAmount) returned error: %v", err)
	}
	if account.Balance != domain.DefaultCoinBalance+MaxCoinAmount {
		t.Fatalf("expected balance %d, got %d", domain.DefaultCoinBalance+MaxCoinAmount, account.Balance)
	}
}

func TestHistory_RecordsLedgerEntriesNewestFirst(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.Add(ctx, testStudent, 25, ""); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if _, err := service.Deduct(ctx, testStudent, 5, ""); err != nil {
		t.Fatalf("Deduct returned error: %v", err)
	}

	entries, err := service.History(ctx, testStudent, 10, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Amount != -5 || entries[0].Reason != domain.CoinReasonManualDeduct || entries[0].BalanceAfter != 120 {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Amount != 25 || entries[1].Reason != domain.CoinReasonManualAdd || entries[1].BalanceAfter != 125 {
		t.Fatalf("unexpected oldest entry: %+v", entries[1])
	}
}

func TestCheckSufficient(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		required int64
		want     bool
	}{
		{required: 0, want: true},
		{required: 100, want: true},
		{required: 101, want: false},
	}
	for _, tt := range tests {
		got, err := service.CheckSufficient(ctx, testStudent, tt.required)
		if err != nil {
			t.Fatalf("CheckSufficient returned error: %v", err)
		}
		if got != tt.want {
			t.Fatalf("CheckSufficient(%d): expected %t, got %t", tt.required, tt.want, got)
		}
	}
}
