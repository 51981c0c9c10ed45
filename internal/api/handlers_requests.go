package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
)

type createRequestPayload struct {
	RequestType string                `json:"requestType" validate:"required,notblank"`
	Details     domain.RequestDetails `json:"details"`
}

type fulfillmentStatusPayload struct {
	RequestID   string `json:"requestId" validate:"required,uuid"`
	IsFulfilled *bool  `json:"isFulfilled" validate:"required"`
}

func parseRequestStatusFilter(raw string) (domain.RequestStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", true
	case "pending":
		return domain.RequestStatusPending, true
	case "in progress", "in_progress":
		return domain.RequestStatusInProgress, true
	case "approved":
		return domain.RequestStatusApproved, true
	case "rejected":
		return domain.RequestStatusRejected, true
	default:
		return "", false
	}
}

func (h *Handlers) parseRequestListOptions(w http.ResponseWriter, r *http.Request) (domain.RequestListOptions, bool) {
	limit, offset, ok := h.parsePagination(w, r, 20)
	if !ok {
		return domain.RequestListOptions{}, false
	}
	status, ok := parseRequestStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid status filter")
		return domain.RequestListOptions{}, false
	}

	opts := domain.RequestListOptions{Limit: limit, Offset: offset, Status: status}
	if rawType := strings.TrimSpace(r.URL.Query().Get("type")); rawType != "" {
		requestType, err := domain.ParseRequestType(rawType)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid type filter")
			return domain.RequestListOptions{}, false
		}
		opts.Type = requestType
	}
	return opts, true
}

// CreateRequestHandler opens a new request for the authenticated user.
func (h *Handlers) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "create_request"
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	var payload createRequestPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	requestType, err := domain.ParseRequestType(payload.RequestType)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	req, err := h.service.CreateRequest(r.Context(), domain.CreateRequestInput{
		Requester: user,
		Type:      requestType,
		Details:   payload.Details,
	})
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	log.Printf("level=info component=api endpoint=%s outcome=created request_id=%s requester=%s", endpoint, req.ID, user)
	h.writeSuccess(w, http.StatusCreated, "Request created successfully", req)
}

// ListMyRequestsHandler lists the requests opened by the authenticated user.
func (h *Handlers) ListMyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	opts, ok := h.parseRequestListOptions(w, r)
	if !ok {
		return
	}

	requests, err := h.service.ListMyRequests(r.Context(), user, opts)
	if err != nil {
		h.writeServiceError(w, "list_my_requests", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", requests)
}

// ListOpenRequestsHandler lists requests other users can still fulfill.
func (h *Handlers) ListOpenRequestsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	opts, ok := h.parseRequestListOptions(w, r)
	if !ok {
		return
	}

	requests, err := h.service.ListOpenRequests(r.Context(), user, opts)
	if err != nil {
		h.writeServiceError(w, "list_open_requests", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", requests)
}

func (h *Handlers) GetRequestHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	requestID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	req, err := h.service.GetRequest(r.Context(), user, requestID)
	if err != nil {
		h.writeServiceError(w, "get_request", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", req)
}

func (h *Handlers) DeleteRequestHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	requestID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRequest(r.Context(), user, requestID); err != nil {
		h.writeServiceError(w, "delete_request", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "Request deleted successfully", nil)
}

// UpdateFulfillmentStatusHandler lets the requester confirm (isFulfilled=true) or reject the
// uploaded document. Confirming credits the fulfiller's reward.
func (h *Handlers) UpdateFulfillmentStatusHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "update_fulfillment_status"
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	var payload fulfillmentStatusPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid requestId")
		return
	}

	req, err := h.service.UpdateFulfillmentStatus(r.Context(), user, requestID, *payload.IsFulfilled)
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	message := "Fulfillment rejected; request reopened"
	if *payload.IsFulfilled {
		message = "Fulfillment confirmed"
	}
	log.Printf("level=info component=api endpoint=%s outcome=updated request_id=%s is_fulfilled=%t", endpoint, req.ID, *payload.IsFulfilled)
	h.writeSuccess(w, http.StatusOK, message, req)
}
