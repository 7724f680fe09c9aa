package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/messenger"
	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/pkg/jobs"
)

// JobTypeMessengerDelivery identifies queued external notification deliveries.
const JobTypeMessengerDelivery = "messenger.deliver"

type notificationWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Delivery is an external copy of a notification for a staff member's messenger account.
type Delivery struct {
	MessengerUserID int64
	Title           string
	Message         string
}

// Notifier records in-app notifications and hands external delivery to a background queue.
type Notifier struct {
	repo    notificationWriter
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotifier constructs a notifier. A nil queue disables external delivery.
func NewNotifier(repo notificationWriter, queue jobEnqueuer, metrics *MetricsService, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{repo: repo, queue: queue, metrics: metrics, logger: logger}
}

// Notify appends an in-app notification on exec.
func (n *Notifier) Notify(ctx context.Context, exec sqlx.ExtContext, userID string, kind models.NotificationType, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if err := n.repo.Create(ctx, exec, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// Dispatch queues deliveries for staff with a messenger account. It never fails the caller.
func (n *Notifier) Dispatch(deliveries ...Delivery) {
	if n.queue == nil {
		return
	}
	for _, d := range deliveries {
		if d.MessengerUserID == 0 {
			continue
		}
		job := jobs.Job{ID: uuid.NewString(), Type: JobTypeMessengerDelivery, Payload: d}
		if err := n.queue.Enqueue(job); err != nil {
			n.metrics.RecordNotificationDelivery("dropped")
			n.logger.Warn("failed to queue messenger delivery",
				zap.Int64("messenger_user_id", d.MessengerUserID),
				zap.Error(err),
			)
		}
	}
}

// DeliveryFor builds a delivery for the staff member, or false when they have no messenger account.
func DeliveryFor(staff *models.Staff, title, message string) (Delivery, bool) {
	if staff == nil || staff.MessengerUserID == nil || *staff.MessengerUserID == 0 {
		return Delivery{}, false
	}
	return Delivery{MessengerUserID: *staff.MessengerUserID, Title: title, Message: message}, true
}

// NewMessengerJobHandler returns the queue handler that performs deliveries through sender.
func NewMessengerJobHandler(sender messenger.Sender, metrics *MetricsService, timeout time.Duration) jobs.Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(ctx context.Context, job jobs.Job) error {
		d, ok := job.Payload.(Delivery)
		if !ok {
			metrics.RecordNotificationDelivery("invalid")
			return nil
		}
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := sender.Send(sendCtx, d.MessengerUserID, fmt.Sprintf("%s\n\n%s", d.Title, d.Message)); err != nil {
			metrics.RecordNotificationDelivery("failed")
			return err
		}
		metrics.RecordNotificationDelivery("sent")
		return nil
	}
}
