package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/jobs"
	"github.com/noah-isme/hostel-ops-api/pkg/notify"
)

// JobTypeRedelivery marks queued notifications that failed on every channel.
const JobTypeRedelivery = "notification_redelivery"

type staffDirectory interface {
	ListActiveByRoles(ctx context.Context, roles []models.StaffRole) ([]models.StaffMember, error)
}

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type redeliveryQueue interface {
	Enqueue(job jobs.Job) error
}

type deliveryMetrics interface {
	RecordNotification(channel models.Channel, status models.NotificationStatus)
}

// redelivery is the payload of a JobTypeRedelivery job.
type redelivery struct {
	AlertType string
	Subject   string
	Message   string
	Priority  models.Priority
	Recipient models.Recipient
	Channels  []models.Channel
}

// NotificationService dispatches alerts to staff and confirmations to
// students, falling back across channels in preference order.
type NotificationService struct {
	directory staffDirectory
	store     notificationStore
	senders   map[models.Channel]notify.Sender
	defaults  []models.Channel
	queue     redeliveryQueue
	metrics   deliveryMetrics
	logger    *zap.Logger
}

// NotificationOption configures optional collaborators.
type NotificationOption func(*NotificationService)

// WithRedeliveryQueue enables background redelivery of undelivered alerts.
func WithRedeliveryQueue(queue redeliveryQueue) NotificationOption {
	return func(s *NotificationService) {
		s.queue = queue
	}
}

// WithDeliveryMetrics records per-channel delivery outcomes.
func WithDeliveryMetrics(metrics deliveryMetrics) NotificationOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService constructs the dispatcher. Channels without a sender
// are skipped during delivery.
func NewNotificationService(directory staffDirectory, store notificationStore, senders map[models.Channel]notify.Sender, defaultChannels []string, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if senders == nil {
		senders = map[models.Channel]notify.Sender{}
	}
	defaults := parseChannels(defaultChannels)
	if len(defaults) == 0 {
		defaults = []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelPush}
	}
	svc := &NotificationService{
		directory: directory,
		store:     store,
		senders:   senders,
		defaults:  defaults,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// NotifyStaff delivers alert to every active staff member holding one of the
// target roles.
func (s *NotificationService) NotifyStaff(ctx context.Context, alert models.Alert) (*models.DeliveryReport, error) {
	if len(alert.TargetRoles) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alert requires at least one target role")
	}
	if s.directory == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "staff directory not configured")
	}
	staff, err := s.directory.ListActiveByRoles(ctx, alert.TargetRoles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve staff recipients")
	}

	report := &models.DeliveryReport{ByChannel: map[models.Channel]int{}}
	if len(staff) == 0 {
		s.logger.Warn("no active staff for alert", zap.String("alert_type", alert.AlertType), zap.Any("roles", alert.TargetRoles))
		return report, nil
	}

	for _, member := range staff {
		channels := parseChannels(member.PreferredChannels)
		if len(channels) == 0 {
			channels = s.defaults
		}
		job := redelivery{
			AlertType: alert.AlertType,
			Subject:   alert.Subject,
			Message:   alert.Message,
			Priority:  alert.Priority,
			Recipient: models.Recipient{ID: member.ID, Name: member.FullName, Email: member.Email, Phone: member.Phone},
			Channels:  channels,
		}
		s.dispatch(ctx, job, report)
	}
	return report, nil
}

// SendEscalationAlert tells the routed staff role that a request awaits review.
func (s *NotificationService) SendEscalationAlert(ctx context.Context, student *models.Student, requestType models.RequestType, data models.RequestData, route models.EscalationRoute) (*models.DeliveryReport, error) {
	alert := models.Alert{
		AlertType:   models.AlertEscalation,
		Subject:     fmt.Sprintf("[%s] %s needs %s review", strings.ToUpper(string(route.Priority)), requestTypeLabel(requestType), route.StaffRole),
		Message:     escalationBody(student, requestType, data, route),
		Priority:    route.Priority,
		TargetRoles: []models.StaffRole{route.StaffRole},
		StudentInfo: student.Info(),
	}
	return s.NotifyStaff(ctx, alert)
}

// SendConfirmation sends a decision update to a student over email, then SMS.
func (s *NotificationService) SendConfirmation(ctx context.Context, student *models.Student, subject, message string) (*models.DeliveryReport, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is required")
	}
	report := &models.DeliveryReport{ByChannel: map[models.Channel]int{}}
	s.dispatch(ctx, redelivery{
		AlertType: models.AlertConfirmation,
		Subject:   subject,
		Message:   message,
		Priority:  models.PriorityLow,
		Recipient: models.Recipient{ID: student.ID, Name: student.FullName, Email: student.Email, Phone: student.Phone},
		Channels:  []models.Channel{models.ChannelEmail, models.ChannelSMS},
	}, report)
	return report, nil
}

// HandleRedelivery is the jobs.Handler for JobTypeRedelivery jobs. It returns
// an error while every channel still fails so the queue retries.
func (s *NotificationService) HandleRedelivery(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(redelivery)
	if !ok {
		s.logger.Error("unexpected redelivery payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	if _, delivered := s.deliver(ctx, payload); !delivered {
		return fmt.Errorf("redeliver %s to %s: all channels failed", payload.AlertType, payload.Recipient.ID)
	}
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, job redelivery, report *models.DeliveryReport) {
	report.Recipients++
	channel, delivered := s.deliver(ctx, job)
	s.persist(ctx, job, models.ChannelInApp, models.NotificationStored, nil)

	if delivered {
		report.Delivered++
		report.ByChannel[channel]++
		return
	}
	report.ByChannel[models.ChannelInApp]++
	report.Failed = append(report.Failed, job.Recipient.ID)
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeRedelivery, Payload: job}); err != nil {
		s.logger.Warn("failed to queue notification redelivery", zap.String("recipient_id", job.Recipient.ID), zap.Error(err))
	}
}

// deliver tries each channel in order and stops at the first success.
func (s *NotificationService) deliver(ctx context.Context, job redelivery) (models.Channel, bool) {
	for _, channel := range job.Channels {
		sender, ok := s.senders[channel]
		if !ok || sender == nil {
			continue
		}
		msg := notify.Message{
			To:       recipientAddress(job.Recipient, channel),
			Subject:  job.Subject,
			Body:     job.Message,
			Priority: string(job.Priority),
			Metadata: map[string]string{"alert_type": job.AlertType},
		}
		err := sender.Send(ctx, msg)
		if err == nil {
			s.persist(ctx, job, channel, models.NotificationSent, nil)
			return channel, true
		}
		if !errors.Is(err, notify.ErrNoAddress) {
			s.logger.Warn("notification channel failed",
				zap.String("channel", string(channel)),
				zap.String("recipient_id", job.Recipient.ID),
				zap.Error(err))
		}
		s.persist(ctx, job, channel, models.NotificationFailed, err)
	}
	return "", false
}

func (s *NotificationService) persist(ctx context.Context, job redelivery, channel models.Channel, status models.NotificationStatus, cause error) {
	if s.metrics != nil {
		s.metrics.RecordNotification(channel, status)
	}
	if s.store == nil {
		return
	}
	row := &models.Notification{
		AlertType:   job.AlertType,
		RecipientID: job.Recipient.ID,
		Channel:     channel,
		Subject:     job.Subject,
		Message:     job.Message,
		Priority:    job.Priority,
		Status:      status,
	}
	if cause != nil {
		msg := cause.Error()
		row.Error = &msg
	}
	if err := s.store.Create(ctx, row); err != nil {
		s.logger.Warn("failed to persist notification", zap.String("channel", string(channel)), zap.Error(err))
	}
}

func recipientAddress(r models.Recipient, channel models.Channel) string {
	switch channel {
	case models.ChannelEmail:
		return r.Email
	case models.ChannelSMS:
		return r.Phone
	default:
		return r.ID
	}
}

func parseChannels(raw []string) []models.Channel {
	channels := make([]models.Channel, 0, len(raw))
	seen := make(map[models.Channel]struct{}, len(raw))
	for _, item := range raw {
		channel := models.Channel(strings.ToLower(strings.TrimSpace(item)))
		switch channel {
		case models.ChannelEmail, models.ChannelSMS, models.ChannelPush:
		default:
			continue
		}
		if _, dup := seen[channel]; dup {
			continue
		}
		seen[channel] = struct{}{}
		channels = append(channels, channel)
	}
	return channels
}

func requestTypeLabel(t models.RequestType) string {
	switch t {
	case models.RequestTypeGuest:
		return "Guest request"
	case models.RequestTypeLeave:
		return "Leave request"
	case models.RequestTypeMaintenance:
		return "Maintenance request"
	case models.RequestTypeCleaning:
		return "Cleaning request"
	default:
		return "Request"
	}
}

func escalationBody(student *models.Student, requestType models.RequestType, data models.RequestData, route models.EscalationRoute) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s requires manual review.\n", strings.ToLower(requestTypeLabel(requestType)))
	fmt.Fprintf(&b, "Reason: %s\nPriority: %s\n", route.Reason, route.Priority)

	info := student.Info()
	b.WriteString("\nStudent:\n")
	for _, key := range []string{"name", "student_id", "room_number", "block", "phone"} {
		fmt.Fprintf(&b, "  %s: %s\n", key, info[key])
	}

	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteString("\nDetails:\n")
		for _, key := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", key, cast.ToString(data[key]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
