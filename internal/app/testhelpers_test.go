package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store/memory"
)

var (
	testStudent = domain.UserRef{ID: "student-1", Model: domain.UserModelStudent}
	testExpert  = domain.UserRef{ID: "expert-1", Model: domain.UserModelProfile}
	testTeacher = domain.UserRef{ID: "teacher-1", Model: domain.UserModelProfile}
)

func newTestService(t *testing.T) (*Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	service := NewService(repo, Options{
		DefaultCoinBalance: domain.DefaultCoinBalance,
		EventsExchange:     "scholarbridge.events",
	})
	return service, repo
}

func createDocumentRequest(t *testing.T, service *Service, requester domain.UserRef) *domain.UserRequest {
	t.Helper()
	req, err := service.CreateRequest(context.Background(), domain.CreateRequestInput{
		Requester: requester,
		Type:      domain.RequestTypeDocument,
		Details: domain.RequestDetails{
			Document: &domain.DocumentDetails{Title: "Attention Is All You Need", Authors: "Vaswani et al."},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}
	return req
}

func uploadDocument(t *testing.T, service *Service, requestID uuid.UUID, uploader domain.UserRef) *domain.Fulfillment {
	t.Helper()
	_, fulfillment, err := service.FulfillUserRequestWithDocument(context.Background(), domain.FulfillInput{
		UserRequestID: requestID,
		UploadedBy:    uploader,
		FileURL:       "https://files.example.com/" + uuid.NewString() + ".pdf",
		PublicID:      "papers/" + uploader.ID,
		PaperDetail:   domain.PaperDetail{Title: "Attention Is All You Need", Authors: "Vaswani et al."},
	})
	if err != nil {
		t.Fatalf("FulfillUserRequestWithDocument returned error: %v", err)
	}
	return fulfillment
}

func balanceOf(t *testing.T, service *Service, owner domain.UserRef) int64 {
	t.Helper()
	account, err := service.GetBalance(context.Background(), owner)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	return account.Balance
}

func countTasks(tasks []domain.OutboxTask, kind string) int {
	count := 0
	for _, task := range tasks {
		if task.Kind == kind {
			count++
		}
	}
	return count
}
