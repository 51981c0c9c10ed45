package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	FulfillmentStatusActive     = "active"
	FulfillmentStatusSuperseded = "superseded"
	FulfillmentStatusRejected   = "rejected"
	FulfillmentStatusConfirmed  = "confirmed"
)

// PaperDetail is the document metadata supplied by the uploader.
type PaperDetail struct {
	Title   string `json:"title"`
	Authors string `json:"authors"`
	DOI     string `json:"doi"`
}

// Fulfillment maps to the `paper_requests` table: one uploaded document offered against a request.
// Only the access counters change after creation, apart from the status moving off active.
type Fulfillment struct {
	ID             uuid.UUID   `json:"id"`
	UserRequestID  uuid.UUID   `json:"userRequestId"`
	Fulfiller      UserRef     `json:"fulfiller"`
	Paper          PaperDetail `json:"paperDetail"`
	FileURL        string      `json:"fileUrl"`
	PublicID       string      `json:"publicId,omitempty"`
	Status         string      `json:"status"`
	ViewCount      int64       `json:"viewCount"`
	DownloadCount  int64       `json:"downloadCount"`
	LastAccessedAt *time.Time  `json:"lastAccessedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// FulfillInput is the document upload payload for FulfillUserRequestWithDocument.
type FulfillInput struct {
	UserRequestID uuid.UUID
	UploadedBy    UserRef
	FileURL       string
	PublicID      string
	FileName      string
	PaperDetail   PaperDetail
}

// FulfillmentAccess distinguishes the two tracked kinds of document access.
type FulfillmentAccess string

const (
	FulfillmentAccessView     FulfillmentAccess = "view"
	FulfillmentAccessDownload FulfillmentAccess = "download"
)
