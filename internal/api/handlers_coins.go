package api

import (
	"net/http"
	"time"

	"github.com/scholarbridge/request-service/internal/domain"
)

type coinAccountPayload struct {
	UserID   string `json:"userId" validate:"required,notblank"`
	UserType string `json:"userType" validate:"required"`
}

type coinMutationPayload struct {
	UserID   string `json:"userId" validate:"required,notblank"`
	UserType string `json:"userType" validate:"required"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,max=64"`
}

type coinCheckPayload struct {
	UserID   string `json:"userId" validate:"required,notblank"`
	UserType string `json:"userType" validate:"required"`
	Required int64  `json:"required" validate:"gte=0"`
}

type coinBalanceResponse struct {
	UserID         string           `json:"userId"`
	UserType       domain.UserModel `json:"userType"`
	Coins          int64            `json:"coins"`
	LastUpdated    time.Time        `json:"lastUpdated"`
	TotalCoins     *int64           `json:"totalCoins,omitempty"`
	RemainingCoins *int64           `json:"remainingCoins,omitempty"`
}

func buildCoinBalanceResponse(account *domain.CoinAccount) coinBalanceResponse {
	return coinBalanceResponse{
		UserID:      account.Owner.ID,
		UserType:    account.Owner.Model,
		Coins:       account.Balance,
		LastUpdated: account.LastUpdated,
	}
}

func (h *Handlers) resolveOwner(w http.ResponseWriter, endpoint, userID, userType string) (domain.UserRef, bool) {
	owner, err := domain.NewUserRef(userID, userType)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return domain.UserRef{}, false
	}
	return owner, true
}

// InternalCoinBalanceHandler returns a user's balance for other platform services.
func (h *Handlers) InternalCoinBalanceHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "internal_coin_balance"
	var payload coinAccountPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	owner, ok := h.resolveOwner(w, endpoint, payload.UserID, payload.UserType)
	if !ok {
		return
	}

	account, err := h.service.GetBalance(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", buildCoinBalanceResponse(account))
}

// InternalAddCoinsHandler credits coins to a user.
func (h *Handlers) InternalAddCoinsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "internal_add_coins"
	var payload coinMutationPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	owner, ok := h.resolveOwner(w, endpoint, payload.UserID, payload.UserType)
	if !ok {
		return
	}

	account, err := h.service.Add(r.Context(), owner, payload.Amount, payload.Reason)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	response := buildCoinBalanceResponse(account)
	response.TotalCoins = &account.Balance
	h.writeSuccess(w, http.StatusOK, "Coins added successfully", response)
}

// InternalDeductCoinsHandler debits coins from a user. Overdrafts are rejected.
func (h *Handlers) InternalDeductCoinsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "internal_deduct_coins"
	var payload coinMutationPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	owner, ok := h.resolveOwner(w, endpoint, payload.UserID, payload.UserType)
	if !ok {
		return
	}

	account, err := h.service.Deduct(r.Context(), owner, payload.Amount, payload.Reason)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	response := buildCoinBalanceResponse(account)
	response.RemainingCoins = &account.Balance
	h.writeSuccess(w, http.StatusOK, "Coins deducted successfully", response)
}

// InternalCheckCoinsHandler reports whether a user can afford an amount.
func (h *Handlers) InternalCheckCoinsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "internal_check_coins"
	var payload coinCheckPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	owner, ok := h.resolveOwner(w, endpoint, payload.UserID, payload.UserType)
	if !ok {
		return
	}

	sufficient, err := h.service.CheckSufficient(r.Context(), owner, payload.Required)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"userId":     owner.ID,
		"userType":   owner.Model,
		"required":   payload.Required,
		"sufficient": sufficient,
	})
}

// GetMyCoinsHandler returns the authenticated user's balance.
func (h *Handlers) GetMyCoinsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	account, err := h.service.GetBalance(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, "get_my_coins", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", buildCoinBalanceResponse(account))
}

// GetCoinHistoryHandler lists the authenticated user's ledger entries, newest first.
func (h *Handlers) GetCoinHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.parsePagination(w, r, 50)
	if !ok {
		return
	}

	entries, err := h.service.History(r.Context(), user, limit, offset)
	if err != nil {
		h.writeServiceError(w, "get_coin_history", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", entries)
}
