// Package memory is an in-process implementation of store.Repository. It enforces the same
// conditional-update contracts as the PostgreSQL repository under a single mutex and backs
// the service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
)

type outboxRow struct {
	task          domain.OutboxTask
	status        string
	nextAttemptAt time.Time
	startedAt     time.Time
	lastError     string
}

// Repository keeps every table in maps guarded by one mutex, so each method is atomic.
type Repository struct {
	mutex sync.Mutex

	accounts      map[domain.UserRef]*domain.CoinAccount
	ledger        []domain.CoinLedgerEntry
	requests      map[uuid.UUID]*domain.UserRequest
	fulfillments  map[uuid.UUID]*domain.Fulfillment
	rewards       map[uuid.UUID]*domain.CoinReward
	notifications map[uuid.UUID]*domain.Notification
	contacts      map[domain.UserRef]domain.UserContact
	outbox        []*outboxRow
	outboxSeq     int64

	// CreditHook, when set, runs before every credit and aborts it on error.
	CreditHook func(mutation domain.CoinMutation) error
	// Now supplies timestamps; tests override it to age records.
	Now func() time.Time
}

var _ store.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		accounts:      map[domain.UserRef]*domain.CoinAccount{},
		requests:      map[uuid.UUID]*domain.UserRequest{},
		fulfillments:  map[uuid.UUID]*domain.Fulfillment{},
		rewards:       map[uuid.UUID]*domain.CoinReward{},
		notifications: map[uuid.UUID]*domain.Notification{},
		contacts:      map[domain.UserRef]domain.UserContact{},
		Now:           time.Now,
	}
}

// PutContact seeds the contact directory.
func (r *Repository) PutContact(contact domain.UserContact) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.contacts[contact.User] = contact
}

// PendingOutboxTasks returns tasks that have not been delivered yet.
func (r *Repository) PendingOutboxTasks() []domain.OutboxTask {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	tasks := make([]domain.OutboxTask, 0, len(r.outbox))
	for _, row := range r.outbox {
		if row.status != "done" {
			tasks = append(tasks, row.task)
		}
	}
	return tasks
}

// OutboxLastError returns the last recorded failure for a task.
func (r *Repository) OutboxLastError(taskID int64) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, row := range r.outbox {
		if row.task.ID == taskID {
			return row.lastError
		}
	}
	return ""
}

// MakeOutboxDue makes every pending task eligible for the next claim.
func (r *Repository) MakeOutboxDue() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, row := range r.outbox {
		if row.status == "pending" {
			row.nextAttemptAt = time.Time{}
		}
	}
}

func (r *Repository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Repository) ensureAccount(owner domain.UserRef, defaultBalance int64) *domain.CoinAccount {
	if account, ok := r.accounts[owner]; ok {
		return account
	}
	if defaultBalance < 0 {
		defaultBalance = domain.DefaultCoinBalance
	}
	now := r.now()
	account := &domain.CoinAccount{
		ID:          uuid.New(),
		Owner:       owner,
		Balance:     defaultBalance,
		LastUpdated: now,
		CreatedAt:   now,
	}
	r.accounts[owner] = account
	return account
}

func (r *Repository) appendLedger(account *domain.CoinAccount, amount int64, reason string, referenceID *uuid.UUID) {
	r.ledger = append(r.ledger, domain.CoinLedgerEntry{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Owner:        account.Owner,
		Amount:       amount,
		BalanceAfter: account.Balance,
		Reason:       reason,
		ReferenceID:  referenceID,
		CreatedAt:    r.now(),
	})
}

func (r *Repository) GetOrCreateCoinAccount(ctx context.Context, owner domain.UserRef, defaultBalance int64) (*domain.CoinAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	account := *r.ensureAccount(owner, defaultBalance)
	return &account, nil
}

func (r *Repository) debit(mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	account := r.ensureAccount(mutation.Owner, mutation.DefaultBalance)
	if account.Balance < mutation.Amount {
		return nil, store.ErrInsufficientFunds
	}
	account.Balance -= mutation.Amount
	account.LastUpdated = r.now()
	r.appendLedger(account, -mutation.Amount, mutation.Reason, mutation.ReferenceID)
	copied := *account
	return &copied, nil
}

func (r *Repository) credit(mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	if r.CreditHook != nil {
		if err := r.CreditHook(mutation); err != nil {
			return nil, err
		}
	}
	account := r.ensureAccount(mutation.Owner, mutation.DefaultBalance)
	account.Balance += mutation.Amount
	account.LastUpdated = r.now()
	r.appendLedger(account, mutation.Amount, mutation.Reason, mutation.ReferenceID)
	copied := *account
	return &copied, nil
}

func (r *Repository) DebitCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.debit(mutation)
}

func (r *Repository) CreditCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.credit(mutation)
}

func (r *Repository) ListCoinLedgerEntries(ctx context.Context, owner domain.UserRef, limit, offset int) ([]domain.CoinLedgerEntry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entries := make([]domain.CoinLedgerEntry, 0)
	for i := len(r.ledger) - 1; i >= 0; i-- {
		if r.ledger[i].Owner.Equal(owner) {
			entries = append(entries, r.ledger[i])
		}
	}
	return paginate(entries, store.ClampLimit(limit, 50, 100), offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func copyRequest(req *domain.UserRequest) *domain.UserRequest {
	copied := *req
	copied.Attachments = append([]domain.Attachment{}, req.Attachments...)
	return &copied
}

func (r *Repository) CreateUserRequest(ctx context.Context, req *domain.UserRequest, cost *domain.CoinMutation, tasks []domain.OutboxTask) (*domain.UserRequest, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cost != nil && cost.Amount > 0 {
		if _, err := r.debit(*cost); err != nil {
			return nil, err
		}
	}

	now := r.now()
	created := copyRequest(req)
	if created.Attachments == nil {
		created.Attachments = []domain.Attachment{}
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	r.requests[created.ID] = created
	r.enqueue(tasks)
	return copyRequest(created), nil
}

func (r *Repository) FindUserRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.UserRequest, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	req, ok := r.requests[requestID]
	if !ok || req.IsDeleted {
		return nil, store.ErrRequestNotFound
	}
	return copyRequest(req), nil
}

func (r *Repository) listRequests(match func(*domain.UserRequest) bool, opts domain.RequestListOptions) []domain.UserRequest {
	results := make([]domain.UserRequest, 0)
	for _, req := range r.requests {
		if req.IsDeleted || !match(req) {
			continue
		}
		if opts.Status != "" && req.Status != opts.Status {
			continue
		}
		if opts.Type != "" && req.Type != opts.Type {
			continue
		}
		results = append(results, *copyRequest(req))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return paginate(results, store.ClampLimit(opts.Limit, 20, 100), opts.Offset)
}

func (r *Repository) ListUserRequestsByRequester(ctx context.Context, requester domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.listRequests(func(req *domain.UserRequest) bool {
		return req.Requester.Equal(requester)
	}, opts), nil
}

func (r *Repository) ListOpenUserRequests(ctx context.Context, viewer domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.listRequests(func(req *domain.UserRequest) bool {
		return req.IsOpen() && !req.Requester.Equal(viewer)
	}, opts), nil
}

func (r *Repository) SoftDeleteUserRequest(ctx context.Context, requestID uuid.UUID, requester domain.UserRef) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	req, ok := r.requests[requestID]
	if !ok || req.IsDeleted || req.IsFulfilled || !req.Requester.Equal(requester) {
		return false, nil
	}
	req.IsDeleted = true
	req.UpdatedAt = r.now()
	return true, nil
}

func (r *Repository) FulfillUserRequest(ctx context.Context, params store.FulfillUserRequestParams) (*domain.UserRequest, *domain.Fulfillment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	req, ok := r.requests[params.UserRequestID]
	if !ok || req.IsDeleted {
		return nil, nil, store.ErrRequestNotFound
	}
	fulfiller := params.Fulfillment.Fulfiller
	if req.Requester.Equal(fulfiller) {
		return nil, nil, store.ErrSelfFulfillment
	}
	if req.IsFulfilled {
		return nil, nil, store.ErrRequestAlreadyFulfilled
	}

	now := r.now()
	for _, existing := range r.fulfillments {
		if existing.UserRequestID == req.ID && existing.Status == domain.FulfillmentStatusActive {
			existing.Status = domain.FulfillmentStatusSuperseded
			existing.UpdatedAt = now
		}
	}

	fulfillment := params.Fulfillment
	fulfillment.UserRequestID = req.ID
	fulfillment.Status = domain.FulfillmentStatusActive
	fulfillment.CreatedAt = now
	fulfillment.UpdatedAt = now
	r.fulfillments[fulfillment.ID] = &fulfillment

	fulfilledBy := fulfiller
	fulfillmentID := fulfillment.ID
	respondedAt := now
	req.Status = domain.RequestStatusApproved
	req.Attachments = append(req.Attachments, params.Attachment)
	req.FulfilledBy = &fulfilledBy
	if params.ResponseMessage != "" {
		message := params.ResponseMessage
		req.AdminResponse.Message = &message
	}
	req.AdminResponse.RespondedAt = &respondedAt
	req.ActiveFulfillmentID = &fulfillmentID
	req.UpdatedAt = now

	r.enqueue(params.Tasks)
	copied := fulfillment
	return copyRequest(req), &copied, nil
}

func sameFulfillment(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *Repository) ConfirmUserRequestFulfillment(ctx context.Context, params store.ResolveFulfillmentParams) (*domain.UserRequest, *domain.CoinReward, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	req, ok := r.requests[params.UserRequestID]
	if !ok || req.IsDeleted || !req.Requester.Equal(params.Requester) ||
		req.Status != domain.RequestStatusApproved || req.IsFulfilled ||
		!sameFulfillment(req.ActiveFulfillmentID, params.ExpectedFulfillmentID) {
		return nil, nil, store.ErrRequestNotFound
	}

	now := r.now()
	req.IsFulfilled = true
	req.FulfilledAt = &now
	req.UpdatedAt = now

	var reward *domain.CoinReward
	if req.ActiveFulfillmentID != nil {
		if fulfillment, ok := r.fulfillments[*req.ActiveFulfillmentID]; ok && fulfillment.Status == domain.FulfillmentStatusActive {
			fulfillment.Status = domain.FulfillmentStatusConfirmed
			fulfillment.UpdatedAt = now
		}
		if req.FulfilledBy != nil && params.RewardAmount > 0 && !r.rewardExistsFor(req.ID, *req.ActiveFulfillmentID) {
			reward = &domain.CoinReward{
				ID:            uuid.New(),
				UserRequestID: req.ID,
				FulfillmentID: *req.ActiveFulfillmentID,
				Beneficiary:   *req.FulfilledBy,
				Amount:        params.RewardAmount,
				Status:        domain.RewardStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			r.rewards[reward.ID] = reward
			copied := *reward
			reward = &copied
		}
	}

	r.enqueue(params.Tasks)
	return copyRequest(req), reward, nil
}

func (r *Repository) rewardExistsFor(requestID, fulfillmentID uuid.UUID) bool {
	for _, reward := range r.rewards {
		if reward.UserRequestID == requestID || reward.FulfillmentID == fulfillmentID {
			return true
		}
	}
	return false
}

func (r *Repository) RevertUserRequestFulfillment(ctx context.Context, params store.ResolveFulfillmentParams) (*domain.UserRequest, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	req, ok := r.requests[params.UserRequestID]
	if !ok || req.IsDeleted || !req.Requester.Equal(params.Requester) ||
		req.Status != domain.RequestStatusApproved ||
		!sameFulfillment(req.ActiveFulfillmentID, params.ExpectedFulfillmentID) {
		return nil, store.ErrRequestNotFound
	}

	now := r.now()
	req.Status = domain.RequestStatusPending
	req.IsFulfilled = false
	req.FulfilledAt = nil
	req.Attachments = []domain.Attachment{}
	req.FulfilledBy = nil
	req.AdminResponse = domain.AdminResponse{}
	req.ActiveFulfillmentID = nil
	req.UpdatedAt = now

	if params.ExpectedFulfillmentID != nil {
		if fulfillment, ok := r.fulfillments[*params.ExpectedFulfillmentID]; ok &&
			(fulfillment.Status == domain.FulfillmentStatusActive || fulfillment.Status == domain.FulfillmentStatusConfirmed) {
			fulfillment.Status = domain.FulfillmentStatusRejected
			fulfillment.UpdatedAt = now
		}
	}

	r.enqueue(params.Tasks)
	return copyRequest(req), nil
}

func (r *Repository) FindFulfillmentByID(ctx context.Context, fulfillmentID uuid.UUID) (*domain.Fulfillment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fulfillment, ok := r.fulfillments[fulfillmentID]
	if !ok {
		return nil, store.ErrFulfillmentNotFound
	}
	copied := *fulfillment
	return &copied, nil
}

func (r *Repository) RecordFulfillmentAccess(ctx context.Context, fulfillmentID uuid.UUID, access domain.FulfillmentAccess) (*domain.Fulfillment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fulfillment, ok := r.fulfillments[fulfillmentID]
	if !ok {
		return nil, store.ErrFulfillmentNotFound
	}
	if access == domain.FulfillmentAccessDownload {
		fulfillment.DownloadCount++
	} else {
		fulfillment.ViewCount++
	}
	now := r.now()
	fulfillment.LastAccessedAt = &now
	copied := *fulfillment
	return &copied, nil
}

func (r *Repository) FindCoinRewardByID(ctx context.Context, rewardID uuid.UUID) (*domain.CoinReward, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	reward, ok := r.rewards[rewardID]
	if !ok {
		return nil, store.ErrRewardNotFound
	}
	copied := *reward
	return &copied, nil
}

func (r *Repository) ListPendingCoinRewards(ctx context.Context, createdBefore time.Time, limit int) ([]domain.CoinReward, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	pending := make([]domain.CoinReward, 0)
	for _, reward := range r.rewards {
		if reward.Status == domain.RewardStatusPending && !reward.CreatedAt.After(createdBefore) {
			pending = append(pending, *reward)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return paginate(pending, store.ClampLimit(limit, 100, 500), 0), nil
}

func (r *Repository) ApplyCoinReward(ctx context.Context, rewardID uuid.UUID, defaultBalance int64, tasks []domain.OutboxTask) (*domain.CoinReward, *domain.CoinAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	reward, ok := r.rewards[rewardID]
	if !ok {
		return nil, nil, store.ErrRewardNotFound
	}
	if reward.Status != domain.RewardStatusPending {
		copied := *reward
		return &copied, nil, nil
	}

	referenceID := reward.UserRequestID
	account, err := r.credit(domain.CoinMutation{
		Owner:          reward.Beneficiary,
		Amount:         reward.Amount,
		Reason:         domain.CoinReasonFulfillmentReward,
		ReferenceID:    &referenceID,
		DefaultBalance: defaultBalance,
	})
	if err != nil {
		return nil, nil, err
	}

	now := r.now()
	reward.Status = domain.RewardStatusCredited
	reward.CreditedAt = &now
	reward.Attempts++
	reward.LastError = nil
	reward.UpdatedAt = now

	r.enqueue(tasks)
	copied := *reward
	return &copied, account, nil
}

func (r *Repository) RecordCoinRewardFailure(ctx context.Context, rewardID uuid.UUID, reason string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if reward, ok := r.rewards[rewardID]; ok && reward.Status == domain.RewardStatusPending {
		reward.Attempts++
		reward.LastError = &reason
		reward.UpdatedAt = r.now()
	}
	return nil
}

func (r *Repository) CreateNotification(ctx context.Context, item domain.Notification) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.notifications[item.ID]; exists {
		return nil
	}
	if item.Priority == "" {
		item.Priority = domain.NotificationPriorityNormal
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = r.now()
	}
	r.notifications[item.ID] = &item
	return nil
}

func (r *Repository) visibleNotifications(recipient domain.UserRef) []*domain.Notification {
	items := make([]*domain.Notification, 0)
	for _, item := range r.notifications {
		if !item.IsDeleted && item.Recipient.Equal(recipient) {
			items = append(items, item)
		}
	}
	return items
}

func (r *Repository) ListNotifications(ctx context.Context, recipient domain.UserRef, opts domain.NotificationListOptions) ([]domain.Notification, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	results := make([]domain.Notification, 0)
	for _, item := range r.visibleNotifications(recipient) {
		if opts.UnreadOnly && item.IsRead {
			continue
		}
		results = append(results, *item)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return paginate(results, store.ClampLimit(opts.Limit, 50, 100), opts.Offset), nil
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, recipient domain.UserRef) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var count int64
	for _, item := range r.visibleNotifications(recipient) {
		if !item.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *Repository) markRead(item *domain.Notification) {
	item.IsRead = true
	if item.ReadAt == nil {
		now := r.now()
		item.ReadAt = &now
	}
}

func (r *Repository) MarkNotificationRead(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.notifications[notificationID]
	if !ok || item.IsDeleted || !item.Recipient.Equal(recipient) {
		return false, nil
	}
	r.markRead(item)
	return true, nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipient domain.UserRef) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var updated int64
	for _, item := range r.visibleNotifications(recipient) {
		if !item.IsRead {
			r.markRead(item)
			updated++
		}
	}
	return updated, nil
}

func (r *Repository) SoftDeleteNotification(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.notifications[notificationID]
	if !ok || item.IsDeleted || !item.Recipient.Equal(recipient) {
		return false, nil
	}
	item.IsDeleted = true
	return true, nil
}

func (r *Repository) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var deleted int64
	for id, item := range r.notifications {
		if item.IsRead && item.CreatedAt.Before(cutoff) {
			delete(r.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *Repository) enqueue(tasks []domain.OutboxTask) {
	now := r.now()
	for _, task := range tasks {
		r.outboxSeq++
		task.ID = r.outboxSeq
		task.Attempts = 0
		r.outbox = append(r.outbox, &outboxRow{task: task, status: "pending", nextAttemptAt: now})
	}
}

func (r *Repository) EnqueueOutboxTasks(ctx context.Context, tasks []domain.OutboxTask) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.enqueue(tasks)
	return nil
}

func (r *Repository) ClaimOutboxTasks(ctx context.Context, limit int, staleAfterSeconds int) ([]domain.OutboxTask, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if staleAfterSeconds <= 0 {
		staleAfterSeconds = 120
	}
	now := r.now()
	staleBefore := now.Add(-time.Duration(staleAfterSeconds) * time.Second)

	claimed := make([]domain.OutboxTask, 0, limit)
	for _, row := range r.outbox {
		if len(claimed) >= limit {
			break
		}
		due := row.status == "pending" && !row.nextAttemptAt.After(now)
		stale := row.status == "processing" && row.startedAt.Before(staleBefore)
		if !due && !stale {
			continue
		}
		row.status = "processing"
		row.startedAt = now
		row.task.Attempts++
		claimed = append(claimed, row.task)
	}
	return claimed, nil
}

func (r *Repository) MarkOutboxTaskDone(ctx context.Context, taskID int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, row := range r.outbox {
		if row.task.ID == taskID {
			row.status = "done"
			row.lastError = ""
		}
	}
	return nil
}

func (r *Repository) MarkOutboxTaskFailed(ctx context.Context, taskID int64, retryAfterSeconds int, reason string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	for _, row := range r.outbox {
		if row.task.ID == taskID {
			row.status = "pending"
			row.nextAttemptAt = r.now().Add(time.Duration(retryAfterSeconds) * time.Second)
			row.lastError = reason
		}
	}
	return nil
}

func (r *Repository) FindUserContact(ctx context.Context, user domain.UserRef) (*domain.UserContact, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	contact, ok := r.contacts[user]
	if !ok {
		return nil, store.ErrContactNotFound
	}
	return &contact, nil
}
