package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
)

const (
	RoutingKeyFulfillmentUploaded  = "request.fulfillment.uploaded"
	RoutingKeyFulfillmentConfirmed = "request.fulfillment.confirmed"
	RoutingKeyFulfillmentRejected  = "request.fulfillment.rejected"
	RoutingKeyCoinsCredited        = "coins.reward.credited"
)

// sideEffects accumulates outbox tasks for one state transition.
type sideEffects struct {
	exchange string
	tasks    []domain.OutboxTask
}

func (s *Service) newSideEffects() *sideEffects {
	return &sideEffects{exchange: s.eventsExchange}
}

func (e *sideEffects) add(kind string, payload interface{}) {
	blob, err := json.Marshal(payload)
	if err != nil {
		log.Printf("level=error component=service msg=\"failed to encode side effect\" kind=%s err=%v", kind, err)
		return
	}
	e.tasks = append(e.tasks, domain.OutboxTask{Kind: kind, Payload: blob})
}

func (e *sideEffects) notify(recipient domain.UserRef, notificationType, title, message, relatedType string, relatedID *uuid.UUID, priority string, metadata map[string]interface{}) {
	e.add(domain.OutboxKindNotification, domain.NotificationTask{
		NotificationID:    uuid.New(),
		Recipient:         recipient,
		Type:              notificationType,
		Title:             title,
		Message:           message,
		RelatedEntityType: relatedType,
		RelatedEntityID:   relatedID,
		Priority:          priority,
		Metadata:          metadata,
	})
}

func (e *sideEffects) email(recipient domain.UserRef, subject, body string) {
	e.add(domain.OutboxKindEmail, domain.EmailTask{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
}

// publish is a no-op when no events exchange is configured.
func (e *sideEffects) publish(routingKey string, event interface{}) {
	if e.exchange == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("level=error component=service msg=\"failed to encode event\" routing_key=%s err=%v", routingKey, err)
		return
	}
	e.add(domain.OutboxKindEvent, domain.EventTask{
		Exchange:   e.exchange,
		RoutingKey: routingKey,
		Body:       body,
	})
}

func requestCreatedEffects(e *sideEffects, req *domain.UserRequest, cost int64) {
	message := fmt.Sprintf("Your %s request %q has been submitted.", req.Type, req.Details.Summary(req.Type))
	if cost > 0 {
		message = fmt.Sprintf("%s %d coins were deducted.", message, cost)
	}
	e.notify(req.Requester, domain.NotificationTypeRequestCreated,
		"Request submitted", message,
		domain.RelatedEntityUserRequest, &req.ID, domain.NotificationPriorityLow,
		map[string]interface{}{"requestType": string(req.Type), "cost": cost},
	)
}

func documentUploadedEffects(e *sideEffects, req *domain.UserRequest, fulfillment *domain.Fulfillment) {
	summary := req.Details.Summary(req.Type)
	e.notify(req.Requester, domain.NotificationTypeDocumentUploaded,
		"Document uploaded for your request",
		fmt.Sprintf("A document was uploaded for your request %q. Review it and confirm or reject the fulfillment.", summary),
		domain.RelatedEntityUserRequest, &req.ID, domain.NotificationPriorityHigh,
		map[string]interface{}{
			"fulfillmentId": fulfillment.ID.String(),
			"doi":           fulfillment.Paper.DOI,
			"fileUrl":       fulfillment.FileURL,
		},
	)
	e.email(req.Requester,
		"A document was uploaded for your request",
		fmt.Sprintf("Good news! A document titled %q was uploaded for your request %q.\n\nOpen the app to review it and confirm or reject the fulfillment.",
			fulfillment.Paper.Title, summary),
	)
	e.publish(RoutingKeyFulfillmentUploaded, domain.FulfillmentUploadedEvent{
		UserRequestID: req.ID,
		FulfillmentID: fulfillment.ID,
		Requester:     req.Requester,
		Fulfiller:     fulfillment.Fulfiller,
		DOI:           fulfillment.Paper.DOI,
		UploadedAt:    fulfillment.CreatedAt,
	})
}

func fulfillmentConfirmedEffects(e *sideEffects, req *domain.UserRequest, reward int64, resolvedAt time.Time) {
	e.publish(RoutingKeyFulfillmentConfirmed, domain.FulfillmentResolvedEvent{
		UserRequestID: req.ID,
		FulfillmentID: req.ActiveFulfillmentID,
		Requester:     req.Requester,
		Fulfiller:     req.FulfilledBy,
		Confirmed:     true,
		ResolvedAt:    resolvedAt,
	})
	if req.FulfilledBy == nil {
		return
	}
	e.notify(*req.FulfilledBy, domain.NotificationTypeFulfillmentConfirmed,
		"Your fulfillment was confirmed",
		fmt.Sprintf("The requester confirmed your document for %q. %d coins will be credited to your account.", req.Details.Summary(req.Type), reward),
		domain.RelatedEntityUserRequest, &req.ID, domain.NotificationPriorityNormal,
		map[string]interface{}{"reward": reward},
	)
}

func fulfillmentRejectedEffects(e *sideEffects, req *domain.UserRequest, resolvedAt time.Time) {
	e.publish(RoutingKeyFulfillmentRejected, domain.FulfillmentResolvedEvent{
		UserRequestID: req.ID,
		FulfillmentID: req.ActiveFulfillmentID,
		Requester:     req.Requester,
		Fulfiller:     req.FulfilledBy,
		Confirmed:     false,
		ResolvedAt:    resolvedAt,
	})
	if req.FulfilledBy == nil {
		return
	}
	summary := req.Details.Summary(req.Type)
	e.notify(*req.FulfilledBy, domain.NotificationTypeFulfillmentRejected,
		"Your fulfillment was rejected",
		fmt.Sprintf("The requester rejected the document you uploaded for %q. The request is open again.", summary),
		domain.RelatedEntityUserRequest, &req.ID, domain.NotificationPriorityNormal,
		nil,
	)
	e.email(*req.FulfilledBy,
		"Your uploaded document was rejected",
		fmt.Sprintf("The requester reviewed the document you uploaded for %q and rejected it.\n\nThe request is open again if you want to try another document.", summary),
	)
}

func coinsCreditedEffects(e *sideEffects, reward *domain.CoinReward, creditedAt time.Time) {
	e.publish(RoutingKeyCoinsCredited, domain.CoinsCreditedEvent{
		RewardID:      reward.ID,
		UserRequestID: reward.UserRequestID,
		Beneficiary:   reward.Beneficiary,
		Amount:        reward.Amount,
		CreditedAt:    creditedAt,
	})
	e.notify(reward.Beneficiary, domain.NotificationTypeCoinsCredited,
		fmt.Sprintf("You earned %d coins", reward.Amount),
		fmt.Sprintf("%d coins were credited to your account for fulfilling a request.", reward.Amount),
		domain.RelatedEntityCoinReward, &reward.ID, domain.NotificationPriorityNormal,
		map[string]interface{}{
			"amount":        reward.Amount,
			"userRequestId": reward.UserRequestID.String(),
		},
	)
}
