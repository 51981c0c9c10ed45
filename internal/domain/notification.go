package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeDocumentUploaded     = "document_uploaded"
	NotificationTypeFulfillmentConfirmed = "fulfillment_confirmed"
	NotificationTypeFulfillmentRejected  = "fulfillment_rejected"
	NotificationTypeCoinsCredited        = "coins_credited"
	NotificationTypeRequestCreated       = "request_created"
	NotificationTypeSystem               = "system"
)

const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

const (
	RelatedEntityUserRequest = "UserRequest"
	RelatedEntityFulfillment = "PaperRequest"
	RelatedEntityCoinReward  = "CoinReward"
)

// Notification maps to the `notifications` table.
type Notification struct {
	ID                uuid.UUID              `json:"id"`
	Recipient         UserRef                `json:"recipient"`
	Type              string                 `json:"type"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	RelatedEntityType *string                `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *uuid.UUID             `json:"relatedEntityId,omitempty"`
	IsRead            bool                   `json:"isRead"`
	ReadAt            *time.Time             `json:"readAt,omitempty"`
	Priority          string                 `json:"priority"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	IsDeleted         bool                   `json:"-"`
	CreatedAt         time.Time              `json:"createdAt"`
}

type NotificationListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}
