package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matching-sms-api/internal/application/preference"
	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/observability/metrics"
	"github.com/matching-sms-api/internal/pkg/id"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type Gate interface {
	Evaluate(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) preference.Decision
}

type LogStore interface {
	Append(ctx context.Context, e *domain.NotificationLogEntry) error
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.NotificationLogEntry, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

type RecipientResolver interface {
	RecipientByID(ctx context.Context, userID string) (domain.Recipient, error)
}

// Service renders, gates, sends and records notifications.
type Service interface {
	Dispatch(ctx context.Context, r domain.Recipient, kind domain.NotificationKind, data domain.EventData) (*domain.DispatchResult, error)
	SendMatchFound(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error)
	SendProfileViewed(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error)
	SendMessageReceived(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error)
	SendReminder(ctx context.Context, r domain.Recipient) (*domain.DispatchResult, error)
	// Process resolves the event's user and dispatches it.
	Process(ctx context.Context, ev domain.NotificationEvent) (*domain.DispatchResult, error)
	History(ctx context.Context, userID string, limit int) ([]domain.NotificationLogEntry, error)
}

type ServiceDeps struct {
	Gate       Gate
	Log        LogStore
	SMSSender  SMSSender
	Recipients RecipientResolver
	// LogSkipped records gated-out notifications with status "skipped".
	LogSkipped bool
	// Timeout bounds a single transport call. Zero means no bound.
	Timeout time.Duration
	Now     func() time.Time
}

type service struct {
	gate       Gate
	log        LogStore
	sms        SMSSender
	recipients RecipientResolver
	logSkipped bool
	timeout    time.Duration
	now        func() time.Time
}

func NewService(d ServiceDeps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{
		gate:       d.Gate,
		log:        d.Log,
		sms:        d.SMSSender,
		recipients: d.Recipients,
		logSkipped: d.LogSkipped,
		timeout:    d.Timeout,
		now:        d.Now,
	}
}

func (s *service) SendMatchFound(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return s.Dispatch(ctx, r, domain.KindMatchFound, data)
}

func (s *service) SendProfileViewed(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return s.Dispatch(ctx, r, domain.KindProfileViewed, data)
}

func (s *service) SendMessageReceived(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return s.Dispatch(ctx, r, domain.KindMessageReceived, data)
}

func (s *service) SendReminder(ctx context.Context, r domain.Recipient) (*domain.DispatchResult, error) {
	return s.Dispatch(ctx, r, domain.KindReminder, domain.EventData{})
}

func (s *service) Process(ctx context.Context, ev domain.NotificationEvent) (*domain.DispatchResult, error) {
	if ev.UserID == "" {
		return nil, fmt.Errorf("userId is required: %w", domain.ErrValidation)
	}
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", ev.Type, domain.ErrValidation)
	}
	r, err := s.recipients.RecipientByID(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, r, ev.Type, ev.Data)
}

func (s *service) Dispatch(ctx context.Context, r domain.Recipient, kind domain.NotificationKind, data domain.EventData) (*domain.DispatchResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", kind, domain.ErrValidation)
	}
	to, err := phoneOf(r)
	if err != nil {
		return nil, err
	}

	body := Render(kind, data)
	entry := &domain.NotificationLogEntry{
		UserID:      domain.RecipientUserID(r),
		Type:        kind,
		PhoneNumber: to,
		MessageBody: body,
		Data:        dataFields(data),
	}

	if d := s.gate.Evaluate(ctx, r, kind); !d.Allowed {
		entry.Status, entry.Reason = domain.StatusSkipped, d.Reason
		if s.logSkipped {
			s.record(ctx, r, entry)
		}
		metrics.NotificationsTotal.WithLabelValues(string(kind), string(domain.StatusSkipped)).Inc()
		slog.Info("notification skipped", "user_id", entry.UserID, "kind", kind, "reason", d.Reason)
		return &domain.DispatchResult{Status: domain.StatusSkipped, Reason: d.Reason}, nil
	}

	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	msgID, sendErr := s.sms.SendSMS(sendCtx, to, body)
	if sendErr != nil {
		entry.Status, entry.Reason = domain.StatusFailed, sendErr.Error()
		s.record(ctx, r, entry)
		metrics.NotificationsTotal.WithLabelValues(string(kind), string(domain.StatusFailed)).Inc()
		slog.Error("notification delivery failed", "user_id", entry.UserID, "kind", kind, "err", sendErr)
		return &domain.DispatchResult{Status: domain.StatusFailed, Reason: sendErr.Error()},
			fmt.Errorf("send %s notification: %v: %w", kind, sendErr, domain.ErrTransport)
	}

	entry.Status, entry.MessageID = domain.StatusSent, msgID
	s.record(ctx, r, entry)
	metrics.NotificationsTotal.WithLabelValues(string(kind), string(domain.StatusSent)).Inc()
	return &domain.DispatchResult{Sent: true, Status: domain.StatusSent, MessageID: msgID}, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]domain.NotificationLogEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.log.ListByUser(ctx, userID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %v: %w", err, domain.ErrPersistence)
	}
	if entries == nil {
		entries = []domain.NotificationLogEntry{}
	}
	return entries, nil
}

// record appends the entry for real recipients. Demo traffic is only traced.
// A failed append never changes the dispatch outcome.
func (s *service) record(ctx context.Context, r domain.Recipient, e *domain.NotificationLogEntry) {
	e.EntryID = id.New()
	e.SentAt = s.now().UTC()
	if _, ok := r.(domain.DemoIdentity); ok {
		slog.Info("demo notification", "kind", e.Type, "status", e.Status, "phone", e.PhoneNumber, "message_id", e.MessageID)
		return
	}
	if err := s.log.Append(ctx, e); err != nil {
		slog.Error("failed to append notification log", "user_id", e.UserID, "kind", e.Type, "err", err)
	}
}

func phoneOf(r domain.Recipient) (string, error) {
	switch v := r.(type) {
	case domain.RealIdentity:
		if v.PhoneNumber == "" {
			return "", fmt.Errorf("user %s has no phone number: %w", v.UserID, domain.ErrNotFound)
		}
		return v.PhoneNumber, nil
	case domain.DemoIdentity:
		return v.PhoneNumber, nil
	default:
		return "", fmt.Errorf("unsupported recipient %T: %w", r, domain.ErrValidation)
	}
}

func dataFields(d domain.EventData) map[string]string {
	out := map[string]string{}
	if d.Name != "" {
		out["name"] = d.Name
	}
	if d.MessagePreview != "" {
		out["messagePreview"] = d.MessagePreview
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
