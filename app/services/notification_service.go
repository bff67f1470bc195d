package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
)

// Notification kinds
const (
	NotifyListingApproved    = "listing_approved"
	NotifyListingRejected    = "listing_rejected"
	NotifyInquiryCreated     = "inquiry_created"
	NotifyInquiryAssigned    = "inquiry_assigned"
	NotifySeriousCustomer    = "serious_customer_closed"
	NotifyListingNeedsReview = "listing_needs_review"
)

// Notification is a message that would be delivered to an actor or a role
type Notification struct {
	Kind          string
	RecipientID   *uint
	RecipientRole string
	Subject       string
	Fields        map[string]any
}

// NotificationService emits notifications triggered by state changes
type NotificationService interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationChannel delivers a notification somewhere
type NotificationChannel interface {
	Deliver(ctx context.Context, n Notification) error
}

// NotificationServiceImpl fans a notification out to every channel
type NotificationServiceImpl struct {
	channels []NotificationChannel
}

// NewNotificationService creates a new notification service
func NewNotificationService(channels ...NotificationChannel) NotificationService {
	return &NotificationServiceImpl{channels: channels}
}

// Notify delivers to all channels and joins their errors
func (s *NotificationServiceImpl) Notify(ctx context.Context, n Notification) error {
	if n.Kind == "" {
		return fmt.Errorf("notification kind is required")
	}
	if n.RecipientID == nil && n.RecipientRole == "" {
		return fmt.Errorf("notification %s has no recipient", n.Kind)
	}

	var errs []error
	for _, ch := range s.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogChannel writes notifications to the structured log instead of delivering them
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger *zap.Logger) NotificationChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Deliver(ctx context.Context, n Notification) error {
	fields := []zap.Field{
		zap.String("kind", n.Kind),
		zap.String("subject", n.Subject),
		zap.String("request_id", utils.RequestIDFrom(ctx)),
	}
	if n.RecipientID != nil {
		fields = append(fields, zap.Uint("recipient_id", *n.RecipientID))
	}
	if n.RecipientRole != "" {
		fields = append(fields, zap.String("recipient_role", n.RecipientRole))
	}
	if len(n.Fields) > 0 {
		fields = append(fields, zap.Any("fields", n.Fields))
	}
	c.logger.Info("notification", fields...)
	return nil
}

// RecordingChannel keeps delivered notifications in memory
type RecordingChannel struct {
	Sent []Notification
}

func (c *RecordingChannel) Deliver(_ context.Context, n Notification) error {
	c.Sent = append(c.Sent, n)
	return nil
}

// Kinds returns the kinds delivered so far in order
func (c *RecordingChannel) Kinds() []string {
	out := make([]string, 0, len(c.Sent))
	for _, n := range c.Sent {
		out = append(out, n.Kind)
	}
	return out
}
