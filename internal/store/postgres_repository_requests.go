package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scholarbridge/request-service/internal/domain"
)

const userRequestColumns = `
	id, requester_id, requester_model, request_type, status, details,
	fulfilled_by_id, fulfilled_by_model, response_message, responded_by_id, responded_by_model, responded_at,
	attachments, is_fulfilled, fulfilled_at, active_fulfillment_id, is_deleted, created_at, updated_at`

const fulfillmentColumns = `
	id, user_request_id, fulfiller_id, fulfiller_model, title, authors, doi, file_url, public_id,
	status, view_count, download_count, last_accessed_at, created_at, updated_at`

const coinRewardColumns = `
	id, user_request_id, fulfillment_id, beneficiary_id, beneficiary_model, amount, status,
	attempts, last_error, credited_at, created_at, updated_at`

func optionalUserRef(id, model *string) *domain.UserRef {
	if id == nil || model == nil || *id == "" {
		return nil
	}
	return &domain.UserRef{ID: *id, Model: domain.UserModel(*model)}
}

func scanUserRequest(row pgx.Row) (*domain.UserRequest, error) {
	var (
		req               domain.UserRequest
		requesterModel    string
		requestType       string
		status            string
		details           []byte
		fulfilledByID     *string
		fulfilledByModel  *string
		respondedByID     *string
		respondedByModel  *string
		attachmentPayload []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.Requester.ID,
		&requesterModel,
		&requestType,
		&status,
		&details,
		&fulfilledByID,
		&fulfilledByModel,
		&req.AdminResponse.Message,
		&respondedByID,
		&respondedByModel,
		&req.AdminResponse.RespondedAt,
		&attachmentPayload,
		&req.IsFulfilled,
		&req.FulfilledAt,
		&req.ActiveFulfillmentID,
		&req.IsDeleted,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}

	req.Requester.Model = domain.UserModel(requesterModel)
	req.Type = domain.RequestType(requestType)
	req.Status = domain.RequestStatus(status)
	req.FulfilledBy = optionalUserRef(fulfilledByID, fulfilledByModel)
	req.AdminResponse.RespondedBy = optionalUserRef(respondedByID, respondedByModel)

	if len(details) > 0 {
		if err := json.Unmarshal(details, &req.Details); err != nil {
			return nil, fmt.Errorf("failed to decode request details: %w", err)
		}
	}
	req.Attachments = []domain.Attachment{}
	if len(attachmentPayload) > 0 {
		if err := json.Unmarshal(attachmentPayload, &req.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode request attachments: %w", err)
		}
	}
	return &req, nil
}

func scanFulfillment(row pgx.Row) (*domain.Fulfillment, error) {
	var (
		item     domain.Fulfillment
		model    string
		publicID *string
	)
	if err := row.Scan(
		&item.ID,
		&item.UserRequestID,
		&item.Fulfiller.ID,
		&model,
		&item.Paper.Title,
		&item.Paper.Authors,
		&item.Paper.DOI,
		&item.FileURL,
		&publicID,
		&item.Status,
		&item.ViewCount,
		&item.DownloadCount,
		&item.LastAccessedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Fulfiller.Model = domain.UserModel(model)
	if publicID != nil {
		item.PublicID = *publicID
	}
	return &item, nil
}

func scanCoinReward(row pgx.Row) (*domain.CoinReward, error) {
	var (
		reward domain.CoinReward
		model  string
	)
	if err := row.Scan(
		&reward.ID,
		&reward.UserRequestID,
		&reward.FulfillmentID,
		&reward.Beneficiary.ID,
		&model,
		&reward.Amount,
		&reward.Status,
		&reward.Attempts,
		&reward.LastError,
		&reward.CreditedAt,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reward.Beneficiary.Model = domain.UserModel(model)
	return &reward, nil
}

const maxErrorTextBytes = 2000

// truncateErrorText drops invalid UTF-8 and cuts long error text on a rune boundary.
func truncateErrorText(reason string) string {
	reason = strings.ToValidUTF8(reason, "")
	if len(reason) <= maxErrorTextBytes {
		return reason
	}
	cut := maxErrorTextBytes
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

func nullableString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// CreateUserRequest inserts the request and, when cost is set, debits the requester in the same transaction.
func (r *PostgresRepository) CreateUserRequest(ctx context.Context, req *domain.UserRequest, cost *domain.CoinMutation, tasks []domain.OutboxTask) (*domain.UserRequest, error) {
	details, err := json.Marshal(req.Details)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if cost != nil && cost.Amount > 0 {
		if _, err := debitCoinsTx(ctx, tx, *cost); err != nil {
			return nil, err
		}
	}

	created, err := scanUserRequest(tx.QueryRow(ctx, `
		INSERT INTO user_requests (id, requester_id, requester_model, request_type, status, details)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+userRequestColumns,
		req.ID,
		req.Requester.ID,
		string(req.Requester.Model),
		string(req.Type),
		string(req.Status),
		string(details),
	))
	if err != nil {
		return nil, err
	}

	if err := enqueueOutboxTasksTx(ctx, tx, tasks); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PostgresRepository) FindUserRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.UserRequest, error) {
	req, err := scanUserRequest(r.db.QueryRow(ctx,
		`SELECT `+userRequestColumns+` FROM user_requests WHERE id = $1 AND is_deleted = FALSE`,
		requestID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *PostgresRepository) ListUserRequestsByRequester(ctx context.Context, requester domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	query := `SELECT ` + userRequestColumns + `
		FROM user_requests
		WHERE requester_id = $1
		  AND requester_model = $2
		  AND is_deleted = FALSE`
	args := []interface{}{requester.ID, string(requester.Model)}
	return r.listUserRequests(ctx, query, args, opts)
}

// ListOpenUserRequests lists requests other users can still fulfill, excluding the viewer's own.
func (r *PostgresRepository) ListOpenUserRequests(ctx context.Context, viewer domain.UserRef, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	query := `SELECT ` + userRequestColumns + `
		FROM user_requests
		WHERE is_deleted = FALSE
		  AND status IN ('Pending', 'In Progress')
		  AND NOT (requester_id = $1 AND requester_model = $2)`
	args := []interface{}{viewer.ID, string(viewer.Model)}
	return r.listUserRequests(ctx, query, args, opts)
}

func (r *PostgresRepository) listUserRequests(ctx context.Context, query string, args []interface{}, opts domain.RequestListOptions) ([]domain.UserRequest, error) {
	limit := ClampLimit(opts.Limit, 20, 100)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	argPos := len(args) + 1

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(opts.Status))
		argPos++
	}
	if opts.Type != "" {
		query += fmt.Sprintf(" AND request_type = $%d", argPos)
		args = append(args, string(opts.Type))
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.UserRequest, 0, limit)
	for rows.Next() {
		req, err := scanUserRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *req)
	}
	return results, rows.Err()
}

// SoftDeleteUserRequest hides a request that has not been confirmed yet.
func (r *PostgresRepository) SoftDeleteUserRequest(ctx context.Context, requestID uuid.UUID, requester domain.UserRef) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_requests
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1
		  AND requester_id = $2
		  AND requester_model = $3
		  AND is_deleted = FALSE
		  AND is_fulfilled = FALSE
	`, requestID, requester.ID, string(requester.Model))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FulfillUserRequest records an uploaded document and moves the request to Approved.
// The request row is locked so concurrent uploads serialize and at most one fulfillment stays active.
func (r *PostgresRepository) FulfillUserRequest(ctx context.Context, params FulfillUserRequestParams) (*domain.UserRequest, *domain.Fulfillment, error) {
	attachments, err := json.Marshal([]domain.Attachment{params.Attachment})
	if err != nil {
		return nil, nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var (
		requester   domain.UserRef
		model       string
		isFulfilled bool
	)
	err = tx.QueryRow(ctx, `
		SELECT requester_id, requester_model, is_fulfilled
		FROM user_requests
		WHERE id = $1 AND is_deleted = FALSE
		FOR UPDATE
	`, params.UserRequestID).Scan(&requester.ID, &model, &isFulfilled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}
	requester.Model = domain.UserModel(model)

	fulfiller := params.Fulfillment.Fulfiller
	if requester.Equal(fulfiller) {
		return nil, nil, ErrSelfFulfillment
	}
	if isFulfilled {
		return nil, nil, ErrRequestAlreadyFulfilled
	}

	if _, err := tx.Exec(ctx, `
		UPDATE paper_requests
		SET status = 'superseded', updated_at = NOW()
		WHERE user_request_id = $1 AND status = 'active'
	`, params.UserRequestID); err != nil {
		return nil, nil, err
	}

	fulfillment, err := scanFulfillment(tx.QueryRow(ctx, `
		INSERT INTO paper_requests (
			id, user_request_id, fulfiller_id, fulfiller_model, title, authors, doi, file_url, public_id, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active')
		RETURNING `+fulfillmentColumns,
		params.Fulfillment.ID,
		params.UserRequestID,
		fulfiller.ID,
		string(fulfiller.Model),
		params.Fulfillment.Paper.Title,
		params.Fulfillment.Paper.Authors,
		params.Fulfillment.Paper.DOI,
		params.Fulfillment.FileURL,
		nullableString(params.Fulfillment.PublicID),
	))
	if err != nil {
		return nil, nil, err
	}

	req, err := scanUserRequest(tx.QueryRow(ctx, `
		UPDATE user_requests
		SET status = 'Approved',
			attachments = attachments || $2::jsonb,
			fulfilled_by_id = $3,
			fulfilled_by_model = $4,
			response_message = $5,
			responded_at = NOW(),
			active_fulfillment_id = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userRequestColumns,
		params.UserRequestID,
		string(attachments),
		fulfiller.ID,
		string(fulfiller.Model),
		nullableString(params.ResponseMessage),
		fulfillment.ID,
	))
	if err != nil {
		return nil, nil, err
	}

	if err := enqueueOutboxTasksTx(ctx, tx, params.Tasks); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return req, fulfillment, nil
}

const (
	confirmUserRequestSQL = `
		UPDATE user_requests
		SET is_fulfilled = TRUE,
			fulfilled_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		  AND requester_id = $2
		  AND requester_model = $3
		  AND status = 'Approved'
		  AND is_fulfilled = FALSE
		  AND is_deleted = FALSE
		  AND active_fulfillment_id IS NOT DISTINCT FROM $4
		RETURNING ` + userRequestColumns

	// Conflicts on either the fulfillment or the request key leave the existing reward alone.
	insertPendingCoinRewardSQL = `
		INSERT INTO coin_rewards (id, user_request_id, fulfillment_id, beneficiary_id, beneficiary_model, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		ON CONFLICT DO NOTHING
		RETURNING ` + coinRewardColumns

	claimPendingCoinRewardSQL = `
		UPDATE coin_rewards
		SET status = 'credited',
			credited_at = NOW(),
			attempts = attempts + 1,
			last_error = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + coinRewardColumns
)

// ConfirmUserRequestFulfillment flips isFulfilled in one conditional update and records a pending
// reward for the fulfiller. A request earns at most one reward, so confirming again after an
// unfulfill returns a nil reward. A request that is missing, not Approved, already confirmed, or
// whose active fulfillment changed yields ErrRequestNotFound.
func (r *PostgresRepository) ConfirmUserRequestFulfillment(ctx context.Context, params ResolveFulfillmentParams) (*domain.UserRequest, *domain.CoinReward, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	req, err := scanUserRequest(tx.QueryRow(ctx, confirmUserRequestSQL,
		params.UserRequestID,
		params.Requester.ID,
		string(params.Requester.Model),
		params.ExpectedFulfillmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrRequestNotFound
		}
		return nil, nil, err
	}

	var reward *domain.CoinReward
	if req.ActiveFulfillmentID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE paper_requests
			SET status = 'confirmed', updated_at = NOW()
			WHERE id = $1 AND status = 'active'
		`, *req.ActiveFulfillmentID); err != nil {
			return nil, nil, err
		}

		if req.FulfilledBy != nil && params.RewardAmount > 0 {
			reward, err = scanCoinReward(tx.QueryRow(ctx, insertPendingCoinRewardSQL,
				uuid.New(),
				req.ID,
				*req.ActiveFulfillmentID,
				req.FulfilledBy.ID,
				string(req.FulfilledBy.Model),
				params.RewardAmount,
			))
			if err != nil {
				if !errors.Is(err, pgx.ErrNoRows) {
					return nil, nil, err
				}
				reward = nil
			}
		}
	}

	if err := enqueueOutboxTasksTx(ctx, tx, params.Tasks); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return req, reward, nil
}

// RevertUserRequestFulfillment returns an Approved request to Pending and clears everything the
// upload attached to it. No coins move.
func (r *PostgresRepository) RevertUserRequestFulfillment(ctx context.Context, params ResolveFulfillmentParams) (*domain.UserRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := scanUserRequest(tx.QueryRow(ctx, `
		UPDATE user_requests
		SET status = 'Pending',
			is_fulfilled = FALSE,
			fulfilled_at = NULL,
			attachments = '[]'::jsonb,
			fulfilled_by_id = NULL,
			fulfilled_by_model = NULL,
			response_message = NULL,
			responded_by_id = NULL,
			responded_by_model = NULL,
			responded_at = NULL,
			active_fulfillment_id = NULL,
			updated_at = NOW()
		WHERE id = $1
		  AND requester_id = $2
		  AND requester_model = $3
		  AND status = 'Approved'
		  AND is_deleted = FALSE
		  AND active_fulfillment_id IS NOT DISTINCT FROM $4
		RETURNING `+userRequestColumns,
		params.UserRequestID,
		params.Requester.ID,
		string(params.Requester.Model),
		params.ExpectedFulfillmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if params.ExpectedFulfillmentID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE paper_requests
			SET status = 'rejected', updated_at = NOW()
			WHERE id = $1 AND status IN ('active', 'confirmed')
		`, *params.ExpectedFulfillmentID); err != nil {
			return nil, err
		}
	}

	if err := enqueueOutboxTasksTx(ctx, tx, params.Tasks); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PostgresRepository) FindFulfillmentByID(ctx context.Context, fulfillmentID uuid.UUID) (*domain.Fulfillment, error) {
	item, err := scanFulfillment(r.db.QueryRow(ctx,
		`SELECT `+fulfillmentColumns+` FROM paper_requests WHERE id = $1 AND is_deleted = FALSE`,
		fulfillmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFulfillmentNotFound
		}
		return nil, err
	}
	return item, nil
}

// RecordFulfillmentAccess bumps the view or download counter.
func (r *PostgresRepository) RecordFulfillmentAccess(ctx context.Context, fulfillmentID uuid.UUID, access domain.FulfillmentAccess) (*domain.Fulfillment, error) {
	column := "view_count"
	if access == domain.FulfillmentAccessDownload {
		column = "download_count"
	}

	item, err := scanFulfillment(r.db.QueryRow(ctx, `
		UPDATE paper_requests
		SET `+column+` = `+column+` + 1,
			last_accessed_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING `+fulfillmentColumns,
		fulfillmentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFulfillmentNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *PostgresRepository) FindCoinRewardByID(ctx context.Context, rewardID uuid.UUID) (*domain.CoinReward, error) {
	reward, err := scanCoinReward(r.db.QueryRow(ctx,
		`SELECT `+coinRewardColumns+` FROM coin_rewards WHERE id = $1`,
		rewardID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return reward, nil
}

func (r *PostgresRepository) ListPendingCoinRewards(ctx context.Context, createdBefore time.Time, limit int) ([]domain.CoinReward, error) {
	limit = ClampLimit(limit, 100, 500)

	rows, err := r.db.Query(ctx, `
		SELECT `+coinRewardColumns+`
		FROM coin_rewards
		WHERE status = 'pending'
		  AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := make([]domain.CoinReward, 0, limit)
	for rows.Next() {
		reward, err := scanCoinReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, *reward)
	}
	return rewards, rows.Err()
}

// ApplyCoinReward moves a reward from pending to credited and credits the beneficiary in one
// transaction. An already credited reward is returned with a nil account and nothing changes.
func (r *PostgresRepository) ApplyCoinReward(ctx context.Context, rewardID uuid.UUID, defaultBalance int64, tasks []domain.OutboxTask) (*domain.CoinReward, *domain.CoinAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	reward, err := scanCoinReward(tx.QueryRow(ctx, claimPendingCoinRewardSQL,
		rewardID,
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
		existing, findErr := r.FindCoinRewardByID(ctx, rewardID)
		if findErr != nil {
			return nil, nil, findErr
		}
		return existing, nil, nil
	}

	referenceID := reward.UserRequestID
	account, err := creditCoinsTx(ctx, tx, domain.CoinMutation{
		Owner:          reward.Beneficiary,
		Amount:         reward.Amount,
		Reason:         domain.CoinReasonFulfillmentReward,
		ReferenceID:    &referenceID,
		DefaultBalance: defaultBalance,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := enqueueOutboxTasksTx(ctx, tx, tasks); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return reward, account, nil
}

func (r *PostgresRepository) RecordCoinRewardFailure(ctx context.Context, rewardID uuid.UUID, reason string) error {
	reason = truncateErrorText(reason)
	_, err := r.db.Exec(ctx, `
		UPDATE coin_rewards
		SET attempts = attempts + 1,
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, rewardID, reason)
	return err
}
