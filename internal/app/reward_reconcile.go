package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/scholarbridge/request-service/internal/domain"
)

const (
	defaultRewardReconcileLimit   = 100
	maxRewardReconcileLimit       = 500
	rewardReconcileEligibilityAge = time.Minute
)

// ReconcilePendingRewards credits rewards left pending by a failed or interrupted confirmation.
// Only rewards older than the eligibility age are picked up so a confirmation still in flight
// gets the first chance to credit its own reward.
func (s *Service) ReconcilePendingRewards(ctx context.Context, limit int) (*domain.RewardReconcileResult, error) {
	if limit <= 0 {
		limit = defaultRewardReconcileLimit
	}
	if limit > maxRewardReconcileLimit {
		limit = maxRewardReconcileLimit
	}

	cutoff := s.now().UTC().Add(-rewardReconcileEligibilityAge)
	candidates, err := s.repo.ListPendingCoinRewards(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rewards: %w", err)
	}

	result := &domain.RewardReconcileResult{
		Processed: len(candidates),
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		_, credited, applyErr := s.ApplyReward(ctx, candidate.ID)
		if applyErr != nil {
			result.Failed++
			log.Printf("level=warn component=service flow=reward_reconcile msg=\"reward credit failed\" reward_id=%s attempts=%d err=%v", candidate.ID, candidate.Attempts+1, applyErr)
			continue
		}
		if credited {
			result.Credited++
			continue
		}
		result.Skipped++
	}

	if result.Processed > 0 {
		log.Printf("level=info component=service flow=reward_reconcile msg=\"sweep finished\" processed=%d credited=%d skipped=%d failed=%d", result.Processed, result.Credited, result.Skipped, result.Failed)
	}
	return result, nil
}
