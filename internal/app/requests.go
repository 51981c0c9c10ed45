package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

// CreateRequest opens a Pending request. When the request type has a coin cost, the debit and
// the insert commit together or not at all.
func (s *Service) CreateRequest(ctx context.Context, input domain.CreateRequestInput) (*domain.UserRequest, error) {
	if err := input.Details.Validate(input.Type); err != nil {
		return nil, err
	}

	req := &domain.UserRequest{
		ID:          uuid.New(),
		Requester:   input.Requester,
		Type:        input.Type,
		Status:      domain.RequestStatusPending,
		Details:     input.Details,
		Attachments: []domain.Attachment{},
	}

	cost := s.RequestCost(input.Type)
	var debit *domain.CoinMutation
	if cost > 0 {
		referenceID := req.ID
		debit = &domain.CoinMutation{
			Owner:          input.Requester,
			Amount:         cost,
			Reason:         domain.CoinReasonRequestCreation,
			ReferenceID:    &referenceID,
			DefaultBalance: s.defaultCoinBalance,
		}
	}

	effects := s.newSideEffects()
	requestCreatedEffects(effects, req, cost)

	created, err := s.repo.CreateUserRequest(ctx, req, debit, effects.tasks)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=request_create msg=\"request created\" request_id=%s requester=%s type=%s cost=%d", created.ID, created.Requester, created.Type, cost)
	return created, nil
}

// GetRequest returns a request to its requester, its current fulfiller, or anyone while it is still open.
func (s *Service) GetRequest(ctx context.Context, viewer domain.UserRef, requestID uuid.UUID) (*domain.UserRequest, error) {
	req, err := s.repo.FindUserRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Requester.Equal(viewer) || req.IsOpen() {
		return req, nil
	}
	if req.FulfilledBy != nil && req.FulfilledBy.Equal(viewer) {
		return req, nil
	}
	return nil, ErrForbidden
}

func (s *Service) ListMyRequests(ctx context.Context, requester domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	return s.repo.ListUserRequestsByRequester(ctx, requester, opts)
}

// ListOpenRequests lists Pending and In Progress requests owned by someone other than the viewer.
func (s *Service) ListOpenRequests(ctx context.Context, viewer domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	return s.repo.ListOpenUserRequests(ctx, viewer, opts)
}

// DeleteRequest soft-deletes a request that has not been confirmed yet.
func (s *Service) DeleteRequest(ctx context.Context, requester domain.UserRef, requestID uuid.UUID) error {
	deleted, err := s.repo.SoftDeleteUserRequest(ctx, requestID, requester)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrRequestNotFound
	}
	return nil
}

// UpdateFulfillmentStatus confirms the fulfillment when isFulfilled is true and rejects it otherwise.
func (s *Service) UpdateFulfillmentStatus(ctx context.Context, requester domain.UserRef, requestID uuid.UUID, isFulfilled bool) (*domain.UserRequest, error) {
	if isFulfilled {
		return s.ConfirmFulfillment(ctx, requester, requestID)
	}
	return s.RejectFulfillment(ctx, requester, requestID)
}

// ConfirmFulfillment marks an Approved request as fulfilled and credits the fulfiller once.
// A failed credit does not fail the confirmation; the reward stays pending for the sweep.
func (s *Service) ConfirmFulfillment(ctx context.Context, requester domain.UserRef, requestID uuid.UUID) (*domain.UserRequest, error) {
	current, err := s.repo.FindUserRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.Requester.Equal(requester) || current.Status != domain.RequestStatusApproved || current.IsFulfilled {
		return nil, store.ErrRequestNotFound
	}

	effects := s.newSideEffects()
	fulfillmentConfirmedEffects(effects, current, s.fulfillmentReward, s.now().UTC())

	req, reward, err := s.repo.ConfirmUserRequestFulfillment(ctx, store.ResolveFulfillmentParams{
		UserRequestID:         requestID,
		Requester:             requester,
		ExpectedFulfillmentID: current.ActiveFulfillmentID,
		RewardAmount:          s.fulfillmentReward,
		Tasks:                 effects.tasks,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=fulfillment_confirm msg=\"fulfillment confirmed\" request_id=%s requester=%s", req.ID, requester)

	if reward == nil && req.FulfilledBy != nil && s.fulfillmentReward > 0 {
		log.Printf("level=info component=service flow=fulfillment_confirm msg=\"request already rewarded; no new reward issued\" request_id=%s", req.ID)
	}
	if reward != nil {
		if _, _, err := s.ApplyReward(ctx, reward.ID); err != nil {
			log.Printf("level=warn component=service flow=fulfillment_confirm msg=\"reward credit deferred to reconciliation\" request_id=%s reward_id=%s err=%v", req.ID, reward.ID, err)
		}
	}
	return req, nil
}

// RejectFulfillment returns an Approved request to Pending, confirmed or not, and clears the upload.
// No coins move; a reward already earned for the request is kept and never issued again.
func (s *Service) RejectFulfillment(ctx context.Context, requester domain.UserRef, requestID uuid.UUID) (*domain.UserRequest, error) {
	current, err := s.repo.FindUserRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.Requester.Equal(requester) || current.Status != domain.RequestStatusApproved {
		return nil, store.ErrRequestNotFound
	}

	effects := s.newSideEffects()
	fulfillmentRejectedEffects(effects, current, s.now().UTC())

	req, err := s.repo.RevertUserRequestFulfillment(ctx, store.ResolveFulfillmentParams{
		UserRequestID:         requestID,
		Requester:             requester,
		ExpectedFulfillmentID: current.ActiveFulfillmentID,
		Tasks:                 effects.tasks,
	})
	if err != nil {
		return nil, err
	}

	fulfiller := "none"
	if current.FulfilledBy != nil {
		fulfiller = current.FulfilledBy.String()
	}
	log.Printf("level=info component=service flow=fulfillment_reject msg=\"fulfillment rejected\" request_id=%s requester=%s fulfiller=%s", req.ID, requester, fulfiller)
	return req, nil
}

func describeRequest(req *domain.UserRequest) string {
	return fmt.Sprintf("%s %q", req.Type, req.Details.Summary(req.Type))
}
