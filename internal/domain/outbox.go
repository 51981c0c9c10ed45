package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbox task kinds.
const (
	OutboxKindNotification = "notification.create"
	OutboxKindEmail        = "email.send"
	OutboxKindEvent        = "event.publish"
)

// OutboxTask is a side effect recorded in the same transaction as the state change that
// caused it, and delivered afterwards by the dispatcher.
type OutboxTask struct {
	ID       int64           `json:"id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// NotificationTask is the payload of a notification.create task. The notification id is
// fixed at enqueue time so redelivery cannot create duplicates.
type NotificationTask struct {
	NotificationID    uuid.UUID              `json:"notificationId"`
	Recipient         UserRef                `json:"recipient"`
	Type              string                 `json:"type"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	RelatedEntityType string                 `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *uuid.UUID             `json:"relatedEntityId,omitempty"`
	Priority          string                 `json:"priority"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// EmailTask is the payload of an email.send task. The address is looked up at send time.
type EmailTask struct {
	Recipient UserRef `json:"recipient"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
}

// EventTask is the payload of an event.publish task.
type EventTask struct {
	Exchange   string          `json:"exchange"`
	RoutingKey string          `json:"routingKey"`
	Body       json.RawMessage `json:"body"`
}

// FulfillmentUploadedEvent is published when a document is uploaded against a request.
type FulfillmentUploadedEvent struct {
	UserRequestID uuid.UUID `json:"user_request_id"`
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	Requester     UserRef   `json:"requester"`
	Fulfiller     UserRef   `json:"fulfiller"`
	DOI           string    `json:"doi"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// FulfillmentResolvedEvent is published when the requester confirms or rejects a fulfillment.
type FulfillmentResolvedEvent struct {
	UserRequestID uuid.UUID  `json:"user_request_id"`
	FulfillmentID *uuid.UUID `json:"fulfillment_id,omitempty"`
	Requester     UserRef    `json:"requester"`
	Fulfiller     *UserRef   `json:"fulfiller,omitempty"`
	Confirmed     bool       `json:"confirmed"`
	ResolvedAt    time.Time  `json:"resolved_at"`
}

// CoinsCreditedEvent is published when a reward has been credited.
type CoinsCreditedEvent struct {
	RewardID      uuid.UUID `json:"reward_id"`
	UserRequestID uuid.UUID `json:"user_request_id"`
	Beneficiary   UserRef   `json:"beneficiary"`
	Amount        int64     `json:"amount"`
	CreditedAt    time.Time `json:"credited_at"`
}
