package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RequestType string

const (
	RequestTypeLab      RequestType = "Lab"
	RequestTypeDocument RequestType = "Document"
	RequestTypeData     RequestType = "Data"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "Pending"
	RequestStatusInProgress RequestStatus = "In Progress"
	RequestStatusApproved   RequestStatus = "Approved"
	RequestStatusRejected   RequestStatus = "Rejected"
)

var (
	ErrInvalidRequestType    = errors.New("invalid request type")
	ErrInvalidRequestDetails = errors.New("invalid request details")
)

// ParseRequestType accepts the type names case-insensitively.
func ParseRequestType(raw string) (RequestType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lab":
		return RequestTypeLab, nil
	case "document":
		return RequestTypeDocument, nil
	case "data":
		return RequestTypeData, nil
	default:
		return "", ErrInvalidRequestType
	}
}

// LabDetails describes a request for lab access or equipment time.
type LabDetails struct {
	LabName       string `json:"labName"`
	Equipment     string `json:"equipment,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
}

// DocumentDetails describes a request for a paper or other document.
type DocumentDetails struct {
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	DOI     string `json:"doi,omitempty"`
	Journal string `json:"journal,omitempty"`
	Year    string `json:"year,omitempty"`
}

// DataDetails describes a request for a dataset.
type DataDetails struct {
	Description string `json:"description"`
	Format      string `json:"format,omitempty"`
	Source      string `json:"source,omitempty"`
}

// RequestDetails carries exactly one sub-object, matching the request type.
type RequestDetails struct {
	Lab      *LabDetails      `json:"lab,omitempty"`
	Document *DocumentDetails `json:"document,omitempty"`
	Data     *DataDetails     `json:"data,omitempty"`
}

// Validate checks that the sub-object for requestType is present and carries its required field.
func (d RequestDetails) Validate(requestType RequestType) error {
	switch requestType {
	case RequestTypeLab:
		if d.Lab == nil || strings.TrimSpace(d.Lab.LabName) == "" {
			return ErrInvalidRequestDetails
		}
	case RequestTypeDocument:
		if d.Document == nil || (strings.TrimSpace(d.Document.Title) == "" && strings.TrimSpace(d.Document.DOI) == "") {
			return ErrInvalidRequestDetails
		}
	case RequestTypeData:
		if d.Data == nil || strings.TrimSpace(d.Data.Description) == "" {
			return ErrInvalidRequestDetails
		}
	default:
		return ErrInvalidRequestType
	}
	return nil
}

// Summary returns a short human label used in notification text.
func (d RequestDetails) Summary(requestType RequestType) string {
	switch {
	case requestType == RequestTypeDocument && d.Document != nil:
		if d.Document.Title != "" {
			return d.Document.Title
		}
		return d.Document.DOI
	case requestType == RequestTypeLab && d.Lab != nil:
		return d.Lab.LabName
	case requestType == RequestTypeData && d.Data != nil:
		return d.Data.Description
	}
	return string(requestType) + " request"
}

// Attachment is a file attached to a request by a fulfiller.
type Attachment struct {
	FileURL    string    `json:"fileUrl"`
	PublicID   string    `json:"publicId,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	UploadedBy UserRef   `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AdminResponse holds the response fields shown to the requester. RespondedBy is only ever
// set by an administrator; fulfillers are tracked in UserRequest.FulfilledBy.
type AdminResponse struct {
	Message     *string    `json:"message,omitempty"`
	RespondedBy *UserRef   `json:"respondedBy,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// UserRequest maps to the `user_requests` table.
// IsFulfilled is only ever true while Status is Approved.
type UserRequest struct {
	ID                  uuid.UUID      `json:"id"`
	Requester           UserRef        `json:"requestBy"`
	Type                RequestType    `json:"requestType"`
	Status              RequestStatus  `json:"status"`
	Details             RequestDetails `json:"details"`
	FulfilledBy         *UserRef       `json:"fulfilledBy,omitempty"`
	AdminResponse       AdminResponse  `json:"adminResponse"`
	Attachments         []Attachment   `json:"attachments"`
	IsFulfilled         bool           `json:"isFulfilled"`
	FulfilledAt         *time.Time     `json:"fulfilledAt,omitempty"`
	ActiveFulfillmentID *uuid.UUID     `json:"activeFulfillmentId,omitempty"`
	IsDeleted           bool           `json:"-"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// IsOpen reports whether other users may still fulfill the request.
func (r *UserRequest) IsOpen() bool {
	return !r.IsDeleted && (r.Status == RequestStatusPending || r.Status == RequestStatusInProgress)
}

// CreateRequestInput is the payload for opening a new request.
type CreateRequestInput struct {
	Requester UserRef
	Type      RequestType
	Details   RequestDetails
}

// RequestListOptions filters request listings.
type RequestListOptions struct {
	Limit  int
	Offset int
	Status RequestStatus
	Type   RequestType
}
