package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
)

// ApplyReward credits a pending reward exactly once. Calling it for a credited reward is a no-op
// and reports credited=false.
func (s *Service) ApplyReward(ctx context.Context, rewardID uuid.UUID) (reward *domain.CoinReward, credited bool, err error) {
	reward, err = s.repo.FindCoinRewardByID(ctx, rewardID)
	if err != nil {
		return nil, false, err
	}
	if reward.Status != domain.RewardStatusPending {
		return reward, false, nil
	}

	effects := s.newSideEffects()
	coinsCreditedEffects(effects, reward, s.now().UTC())

	applied, account, err := s.repo.ApplyCoinReward(ctx, rewardID, s.defaultCoinBalance, effects.tasks)
	if err != nil {
		if recordErr := s.repo.RecordCoinRewardFailure(ctx, rewardID, err.Error()); recordErr != nil {
			log.Printf("level=error component=service flow=reward_apply msg=\"failed to record reward failure\" reward_id=%s err=%v", rewardID, recordErr)
		}
		return nil, false, fmt.Errorf("failed to apply coin reward: %w", err)
	}
	if account == nil {
		return applied, false, nil
	}
	log.Printf("level=info component=service flow=reward_apply msg=\"reward credited\" reward_id=%s beneficiary=%s amount=%d balance=%d", applied.ID, applied.Beneficiary, applied.Amount, account.Balance)
	return applied, true, nil
}
