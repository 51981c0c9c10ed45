package app

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

type stubUploadLimiter struct {
	mu         sync.Mutex
	counts     map[string]int
	retryAfter time.Duration
	err        error
}

func (s *stubUploadLimiter) CountUpload(ctx context.Context, uploader domain.UserRef) (UploadQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UploadQuota{}, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	s.counts[uploader.String()]++
	return UploadQuota{Used: s.counts[uploader.String()], RetryAfter: s.retryAfter}, nil
}

func TestGenerateDOI_Format(t *testing.T) {
	now := time.UnixMilli(1717171717171)
	pattern := regexp.MustCompile(`^DOI-1717171717171-[0-9a-f]{9}$`)

	first := generateDOI(now)
	second := generateDOI(now)
	if !pattern.MatchString(first) {
		t.Fatalf("unexpected DOI format: %s", first)
	}
	if first == second {
		t.Fatalf("expected random suffixes to differ, got %s twice", first)
	}
}

func TestFulfill_KeepsSuppliedDOI(t *testing.T) {
	service, _ := newTestService(t)
	req := createDocumentRequest(t, service, testStudent)

	_, fulfillment, err := service.FulfillUserRequestWithDocument(context.Background(), domain.FulfillInput{
		UserRequestID: req.ID,
		UploadedBy:    testExpert,
		FileURL:       "  https://files.example.com/paper.pdf  ",
		PaperDetail:   domain.PaperDetail{Title: "A Paper", DOI: " 10.48550/arXiv.1706.03762 "},
	})
	if err != nil {
		t.Fatalf("FulfillUserRequestWithDocument returned error: %v", err)
	}
	if fulfillment.Paper.DOI != "10.48550/arXiv.1706.03762" {
		t.Fatalf("expected trimmed DOI to be kept, got %q", fulfillment.Paper.DOI)
	}
	if fulfillment.FileURL != "https://files.example.com/paper.pdf" {
		t.Fatalf("expected trimmed file URL, got %q", fulfillment.FileURL)
	}
}

func TestFulfill_AttachmentCarriesUploader(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	req := createDocumentRequest(t, service, testStudent)

	updated, _, err := service.FulfillUserRequestWithDocument(ctx, domain.FulfillInput{
		UserRequestID: req.ID,
		UploadedBy:    testExpert,
		FileURL:       "https://files.example.com/paper.pdf",
		PublicID:      "papers/abc",
		PaperDetail:   domain.PaperDetail{Title: "Attention Is All You Need"},
	})
	if err != nil {
		t.Fatalf("FulfillUserRequestWithDocument returned error: %v", err)
	}
	if len(updated.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(updated.Attachments))
	}
	attachment := updated.Attachments[0]
	if !attachment.UploadedBy.Equal(testExpert) || attachment.PublicID != "papers/abc" || attachment.FileName != "Attention Is All You Need" {
		t.Fatalf("unexpected attachment: %+v", attachment)
	}
	if updated.AdminResponse.Message == nil || updated.AdminResponse.RespondedAt == nil {
		t.Fatalf("expected response message and time to be recorded")
	}
}

func TestFulfill_UploadRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		limiter   *stubUploadLimiter
		perMinute int
		uploads   int
		wantErrAt int
		wantRetry int
	}{
		{name: "within limit", limiter: &stubUploadLimiter{retryAfter: 30 * time.Second}, perMinute: 3, uploads: 3, wantErrAt: -1},
		{name: "over limit", limiter: &stubUploadLimiter{retryAfter: 41500 * time.Millisecond}, perMinute: 2, uploads: 3, wantErrAt: 2, wantRetry: 42},
		{name: "window about to close", limiter: &stubUploadLimiter{retryAfter: 80 * time.Millisecond}, perMinute: 1, uploads: 2, wantErrAt: 1, wantRetry: 1},
		{name: "limiter unavailable fails open", limiter: &stubUploadLimiter{err: errors.New("redis down")}, perMinute: 1, uploads: 3, wantErrAt: -1},
		{name: "disabled", limiter: &stubUploadLimiter{retryAfter: 10 * time.Second}, perMinute: 0, uploads: 3, wantErrAt: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)
			service.SetUploadLimiter(tt.limiter)
			service.ConfigureUploadRateLimit(tt.perMinute)
			req := createDocumentRequest(t, service, testStudent)

			for i := 0; i < tt.uploads; i++ {
				_, _, err := service.FulfillUserRequestWithDocument(context.Background(), domain.FulfillInput{
					UserRequestID: req.ID,
					UploadedBy:    testExpert,
					FileURL:       "https://files.example.com/paper.pdf",
				})
				if i != tt.wantErrAt {
					if err != nil {
						t.Fatalf("upload %d: unexpected error: %v", i, err)
					}
					continue
				}
				if !errors.Is(err, ErrRateLimited) {
					t.Fatalf("upload %d: expected ErrRateLimited, got %v", i, err)
				}
				var limited *RateLimitedError
				if !errors.As(err, &limited) || limited.RetryAfterSeconds != tt.wantRetry {
					t.Fatalf("expected retry-after %d, got %+v", tt.wantRetry, limited)
				}
			}
		})
	}
}

func TestFulfillmentAccess(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	outsider := domain.UserRef{ID: "student-9", Model: domain.UserModelStudent}

	req := createDocumentRequest(t, service, testStudent)
	fulfillment := uploadDocument(t, service, req.ID, testExpert)

	if _, err := service.GetFulfillment(ctx, outsider, fulfillment.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := service.GetFulfillment(ctx, testStudent, uuid.New()); !errors.Is(err, store.ErrFulfillmentNotFound) {
		t.Fatalf("expected ErrFulfillmentNotFound, got %v", err)
	}

	viewed, err := service.GetFulfillment(ctx, testStudent, fulfillment.ID)
	if err != nil {
		t.Fatalf("GetFulfillment returned error: %v", err)
	}
	if viewed.ViewCount != 1 || viewed.LastAccessedAt == nil {
		t.Fatalf("expected one recorded view, got %+v", viewed)
	}

	if _, err := service.RecordDownload(ctx, testExpert, fulfillment.ID); err != nil {
		t.Fatalf("RecordDownload by fulfiller returned error: %v", err)
	}
	downloaded, err := service.RecordDownload(ctx, testStudent, fulfillment.ID)
	if err != nil {
		t.Fatalf("RecordDownload returned error: %v", err)
	}
	if downloaded.DownloadCount != 2 || downloaded.ViewCount != 1 {
		t.Fatalf("expected 2 downloads and 1 view, got downloads=%d views=%d", downloaded.DownloadCount, downloaded.ViewCount)
	}
	if downloaded.FileURL != fulfillment.FileURL {
		t.Fatalf("expected file URL %q, got %q", fulfillment.FileURL, downloaded.FileURL)
	}
}
