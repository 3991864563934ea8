package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/id"
	"github.com/agencynet/agencynet-server/internal/store"
)

// NotifyRequest describes one recipient-addressed notification.
// A non-empty DedupeKey makes the request idempotent.
type NotifyRequest struct {
	Payload     map[string]string
	RecipientID string
	Kind        domain.NotificationKind
	Title       string
	Body        string
	DedupeKey   string
}

// Notifier creates notification rows. Delivery is left to whoever subscribes to
// the notifications change feed.
type Notifier struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewNotifier creates a notifier.
func NewNotifier(store store.Store, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// Notify creates the notification unless one with the same dedupe key exists.
func (n *Notifier) Notify(ctx context.Context, req NotifyRequest) error {
	now := n.clock().UTC()
	notificationID, err := id.NewULID(now)
	if err != nil {
		return err
	}

	created, err := n.store.CreateNotification(ctx, &domain.Notification{
		CreatedAt:   now,
		Payload:     req.Payload,
		ID:          notificationID,
		RecipientID: req.RecipientID,
		Kind:        req.Kind,
		Title:       req.Title,
		Body:        req.Body,
		DedupeKey:   req.DedupeKey,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if !created {
		n.logger.Debug("notification already sent",
			"kind", req.Kind,
			"recipient_id", req.RecipientID,
			"dedupe_key", req.DedupeKey,
		)
		return nil
	}

	n.logger.Info("Notification created",
		"notification_id", notificationID,
		"kind", req.Kind,
		"recipient_id", req.RecipientID,
	)
	return nil
}

// List returns the recipient's most recent notifications, newest first.
func (n *Notifier) List(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error) {
	notifications, err := n.store.ListNotifications(ctx, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	return notifications, nil
}
