package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/app"
	"github.com/scholarbridge/request-service/internal/domain"
)

type fulfillDocumentPayload struct {
	UserRequestID string             `json:"userRequestId" validate:"required,uuid"`
	UploadedBy    string             `json:"uploadedBy,omitempty"`
	FileURL       string             `json:"fileUrl"`
	PublicID      string             `json:"publicId,omitempty"`
	FileName      string             `json:"fileName,omitempty"`
	PaperDetail   domain.PaperDetail `json:"paperDetail"`
}

type fulfillDocumentResponse struct {
	Request     *domain.UserRequest `json:"request"`
	Fulfillment *domain.Fulfillment `json:"fulfillment"`
}

type fulfillmentDownloadResponse struct {
	FulfillmentID uuid.UUID `json:"fulfillmentId"`
	FileURL       string    `json:"fileUrl"`
	DownloadCount int64     `json:"downloadCount"`
}

// FulfillWithDocumentHandler attaches an uploaded document to another user's request.
func (h *Handlers) FulfillWithDocumentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "fulfill_with_document"
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	var payload fulfillDocumentPayload
	if !h.decodeAndValidate(w, r, endpoint, &payload) {
		return
	}
	requestID, err := uuid.Parse(payload.UserRequestID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid userRequestId")
		return
	}
	// The uploader is always the caller; a mismatching uploadedBy is someone acting for another user.
	if uploadedBy := strings.TrimSpace(payload.UploadedBy); uploadedBy != "" && uploadedBy != user.ID {
		h.writeServiceError(w, endpoint, app.ErrForbidden)
		return
	}

	req, fulfillment, err := h.service.FulfillUserRequestWithDocument(r.Context(), domain.FulfillInput{
		UserRequestID: requestID,
		UploadedBy:    user,
		FileURL:       payload.FileURL,
		PublicID:      payload.PublicID,
		FileName:      payload.FileName,
		PaperDetail:   payload.PaperDetail,
	})
	if err != nil {
		h.writeServiceError(w, endpoint, err)
		return
	}

	log.Printf("level=info component=api endpoint=%s outcome=created request_id=%s fulfillment_id=%s", endpoint, req.ID, fulfillment.ID)
	h.writeSuccess(w, http.StatusCreated, "Document uploaded successfully", fulfillDocumentResponse{
		Request:     req,
		Fulfillment: fulfillment,
	})
}

func (h *Handlers) GetFulfillmentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	fulfillmentID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	fulfillment, err := h.service.GetFulfillment(r.Context(), user, fulfillmentID)
	if err != nil {
		h.writeServiceError(w, "get_fulfillment", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", fulfillment)
}

// DownloadFulfillmentHandler counts a download and hands back the file URL.
func (h *Handlers) DownloadFulfillmentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	fulfillmentID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	fulfillment, err := h.service.RecordDownload(r.Context(), user, fulfillmentID)
	if err != nil {
		h.writeServiceError(w, "download_fulfillment", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", fulfillmentDownloadResponse{
		FulfillmentID: fulfillment.ID,
		FileURL:       fulfillment.FileURL,
		DownloadCount: fulfillment.DownloadCount,
	})
}

// ReconcileRewardsHandler runs one reward sweep on demand for operators.
func (h *Handlers) ReconcileRewardsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	result, err := h.service.ReconcilePendingRewards(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "reconcile_rewards", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", result)
}
