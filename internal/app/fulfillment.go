package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

// FulfillUserRequestWithDocument attaches an uploaded document to someone else's request and
// moves it to Approved. The requester still has to confirm before any coins are credited.
func (s *Service) FulfillUserRequestWithDocument(ctx context.Context, input domain.FulfillInput) (*domain.UserRequest, *domain.Fulfillment, error) {
	fileURL := strings.TrimSpace(input.FileURL)
	if fileURL == "" {
		return nil, nil, ErrMissingFile
	}
	if input.UserRequestID == uuid.Nil {
		return nil, nil, store.ErrRequestNotFound
	}
	if err := s.enforceUploadRateLimit(ctx, input.UploadedBy); err != nil {
		return nil, nil, err
	}

	current, err := s.repo.FindUserRequestByID(ctx, input.UserRequestID)
	if err != nil {
		return nil, nil, err
	}
	if current.Requester.Equal(input.UploadedBy) {
		return nil, nil, store.ErrSelfFulfillment
	}
	if current.IsFulfilled {
		return nil, nil, store.ErrRequestAlreadyFulfilled
	}

	now := s.now().UTC()
	paper := domain.PaperDetail{
		Title:   strings.TrimSpace(input.PaperDetail.Title),
		Authors: strings.TrimSpace(input.PaperDetail.Authors),
		DOI:     strings.TrimSpace(input.PaperDetail.DOI),
	}
	if paper.DOI == "" {
		paper.DOI = generateDOI(now)
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		fileName = paper.Title
	}

	fulfillment := domain.Fulfillment{
		ID:            uuid.New(),
		UserRequestID: current.ID,
		Fulfiller:     input.UploadedBy,
		Paper:         paper,
		FileURL:       fileURL,
		PublicID:      strings.TrimSpace(input.PublicID),
		Status:        domain.FulfillmentStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	attachment := domain.Attachment{
		FileURL:    fileURL,
		PublicID:   fulfillment.PublicID,
		FileName:   fileName,
		UploadedBy: input.UploadedBy,
		UploadedAt: now,
	}

	effects := s.newSideEffects()
	documentUploadedEffects(effects, current, &fulfillment)

	req, created, err := s.repo.FulfillUserRequest(ctx, store.FulfillUserRequestParams{
		UserRequestID:   current.ID,
		Fulfillment:     fulfillment,
		Attachment:      attachment,
		ResponseMessage: fmt.Sprintf("Document uploaded for %s", describeRequest(current)),
		Tasks:           effects.tasks,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("level=info component=service flow=fulfillment_upload msg=\"document uploaded\" request_id=%s fulfillment_id=%s fulfiller=%s doi=%q", req.ID, created.ID, input.UploadedBy, created.Paper.DOI)
	return req, created, nil
}

func (s *Service) enforceUploadRateLimit(ctx context.Context, uploader domain.UserRef) error {
	if s.uploadLimiter == nil || s.uploadRateLimitPerMinute <= 0 {
		return nil
	}
	quota, err := s.uploadLimiter.CountUpload(ctx, uploader)
	if err != nil {
		log.Printf("level=warn component=service flow=fulfillment_upload msg=\"rate limiter unavailable; allowing upload\" uploader=%s err=%v", uploader, err)
		return nil
	}
	if quota.Used > s.uploadRateLimitPerMinute {
		return &RateLimitedError{RetryAfterSeconds: retryAfterSeconds(quota.RetryAfter)}
	}
	return nil
}

// retryAfterSeconds rounds a wait up to whole seconds, never below one.
func retryAfterSeconds(wait time.Duration) int {
	seconds := int((wait + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// generateDOI builds a placeholder identifier of the form DOI-<unix millis>-<random>.
func generateDOI(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("DOI-%d-%s", now.UnixMilli(), suffix)
}

// GetFulfillment returns a fulfillment to its requester or fulfiller and counts the view.
func (s *Service) GetFulfillment(ctx context.Context, viewer domain.UserRef, fulfillmentID uuid.UUID) (*domain.Fulfillment, error) {
	if err := s.authorizeFulfillmentAccess(ctx, viewer, fulfillmentID); err != nil {
		return nil, err
	}
	return s.repo.RecordFulfillmentAccess(ctx, fulfillmentID, domain.FulfillmentAccessView)
}

// RecordDownload counts a download and returns the fulfillment with its file URL.
func (s *Service) RecordDownload(ctx context.Context, viewer domain.UserRef, fulfillmentID uuid.UUID) (*domain.Fulfillment, error) {
	if err := s.authorizeFulfillmentAccess(ctx, viewer, fulfillmentID); err != nil {
		return nil, err
	}
	return s.repo.RecordFulfillmentAccess(ctx, fulfillmentID, domain.FulfillmentAccessDownload)
}

func (s *Service) authorizeFulfillmentAccess(ctx context.Context, viewer domain.UserRef, fulfillmentID uuid.UUID) error {
	fulfillment, err := s.repo.FindFulfillmentByID(ctx, fulfillmentID)
	if err != nil {
		return err
	}
	if fulfillment.Fulfiller.Equal(viewer) {
		return nil
	}
	req, err := s.repo.FindUserRequestByID(ctx, fulfillment.UserRequestID)
	if err != nil {
		if errors.Is(err, store.ErrRequestNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !req.Requester.Equal(viewer) {
		return ErrForbidden
	}
	return nil
}
