package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/scholarbridge/request-service/internal/domain"
	"github.com/scholarbridge/request-service/internal/store"
	"github.com/scholarbridge/request-service/pkg/mailer"
	"github.com/scholarbridge/request-service/pkg/rabbitmq"
)

const (
	defaultBatchSize       = 50
	defaultPollInterval    = 1200 * time.Millisecond
	defaultStaleProcessing = 2 * time.Minute
	taskDeliveryTimeout    = 15 * time.Second
)

// permanentError marks a task that can never succeed; it is logged and retired instead of retried.
type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

// TaskHandler delivers one outbox task.
type TaskHandler func(ctx context.Context, task domain.OutboxTask) error

// OutboxDispatcher delivers side effects recorded by state transitions: inbox notifications,
// emails, and broker events. Failed deliveries are rescheduled with exponential backoff.
type OutboxDispatcher struct {
	repo                store.Repository
	publisher           rabbitmq.Publisher
	mailer              mailer.Sender
	handlers            map[string]TaskHandler
	batchSize           int
	pollInterval        time.Duration
	staleProcessingTime time.Duration
}

func NewOutboxDispatcher(repo store.Repository, publisher rabbitmq.Publisher, sender mailer.Sender) *OutboxDispatcher {
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{}
	}
	if sender == nil {
		sender = mailer.LogMailer{}
	}
	d := &OutboxDispatcher{
		repo:                repo,
		publisher:           publisher,
		mailer:              sender,
		batchSize:           defaultBatchSize,
		pollInterval:        defaultPollInterval,
		staleProcessingTime: defaultStaleProcessing,
	}
	d.handlers = map[string]TaskHandler{
		domain.OutboxKindNotification: d.deliverNotification,
		domain.OutboxKindEmail:        d.deliverEmail,
		domain.OutboxKindEvent:        d.deliverEvent,
	}
	return d
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	defer d.publisher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.FlushOnce(ctx); err != nil {
				log.Printf("level=error component=outbox_dispatcher msg=\"flush failed\" err=%v", err)
			}
		}
	}
}

// FlushOnce claims one batch and delivers it, returning the number of tasks completed.
func (d *OutboxDispatcher) FlushOnce(ctx context.Context) (int, error) {
	staleAfterSeconds := int(d.staleProcessingTime.Seconds())
	tasks, err := d.repo.ClaimOutboxTasks(ctx, d.batchSize, staleAfterSeconds)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, task := range tasks {
		if err := d.deliver(ctx, task); err != nil {
			var perm permanentError
			if errors.As(err, &perm) {
				log.Printf("level=error component=outbox_dispatcher msg=\"dropping undeliverable task\" task_id=%d kind=%s err=%v", task.ID, task.Kind, err)
				if markErr := d.repo.MarkOutboxTaskDone(ctx, task.ID); markErr != nil {
					log.Printf("level=error component=outbox_dispatcher msg=\"failed to retire task\" task_id=%d err=%v", task.ID, markErr)
				}
				continue
			}
			retryAfter := retryDelaySeconds(task.Attempts)
			log.Printf("level=warn component=outbox_dispatcher msg=\"delivery failed; rescheduled\" task_id=%d kind=%s attempts=%d retry_after_seconds=%d err=%v", task.ID, task.Kind, task.Attempts, retryAfter, err)
			if markErr := d.repo.MarkOutboxTaskFailed(ctx, task.ID, retryAfter, err.Error()); markErr != nil {
				log.Printf("level=error component=outbox_dispatcher msg=\"failed to reschedule task\" task_id=%d err=%v", task.ID, markErr)
			}
			continue
		}
		if err := d.repo.MarkOutboxTaskDone(ctx, task.ID); err != nil {
			log.Printf("level=error component=outbox_dispatcher msg=\"failed to mark task done\" task_id=%d err=%v", task.ID, err)
			continue
		}
		completed++
	}
	return completed, nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, task domain.OutboxTask) error {
	handler, ok := d.handlers[task.Kind]
	if !ok {
		return permanent(fmt.Errorf("unknown outbox task kind %q", task.Kind))
	}
	deliveryCtx, cancel := context.WithTimeout(ctx, taskDeliveryTimeout)
	defer cancel()
	return handler(deliveryCtx, task)
}

func (d *OutboxDispatcher) deliverNotification(ctx context.Context, task domain.OutboxTask) error {
	var payload domain.NotificationTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return permanent(err)
	}

	item := domain.Notification{
		ID:              payload.NotificationID,
		Recipient:       payload.Recipient,
		Type:            payload.Type,
		Title:           payload.Title,
		Message:         payload.Message,
		RelatedEntityID: payload.RelatedEntityID,
		Priority:        payload.Priority,
		Metadata:        payload.Metadata,
	}
	if payload.RelatedEntityType != "" {
		relatedType := payload.RelatedEntityType
		item.RelatedEntityType = &relatedType
	}
	return d.repo.CreateNotification(ctx, item)
}

func (d *OutboxDispatcher) deliverEmail(ctx context.Context, task domain.OutboxTask) error {
	var payload domain.EmailTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return permanent(err)
	}

	contact, err := d.repo.FindUserContact(ctx, payload.Recipient)
	if err != nil {
		if errors.Is(err, store.ErrContactNotFound) {
			return permanent(fmt.Errorf("no email on file for %s", payload.Recipient))
		}
		return err
	}

	err = d.mailer.Send(ctx, mailer.Message{
		ToAddress: contact.Email,
		ToName:    contact.Name,
		Subject:   payload.Subject,
		Text:      payload.Body,
	})
	if errors.Is(err, mailer.ErrNoRecipient) {
		return permanent(err)
	}
	return err
}

func (d *OutboxDispatcher) deliverEvent(ctx context.Context, task domain.OutboxTask) error {
	var payload domain.EventTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return permanent(err)
	}
	return d.publisher.Publish(ctx, payload.Exchange, payload.RoutingKey, payload.Body)
}

func retryDelaySeconds(attempt int) int {
	if attempt < 1 {
		return 1
	}
	delay := 1 << minInt(attempt, 8)
	if delay > 300 {
		return 300
	}
	return delay
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
