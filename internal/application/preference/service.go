package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matching-sms-api/internal/domain"
)

type Store interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
	Create(ctx context.Context, p *domain.NotificationPreferences) error
	Update(ctx context.Context, userID string, updates map[string]interface{}, at time.Time) error
}

// Decision is the gate's verdict for one notification. Reason is set when not allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Service resolves notification preferences and gates outbound notifications.
type Service interface {
	// Get returns the user's preferences, creating the defaults on first read.
	Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
	// Update applies a partial patch. It reports false on invalid input or store failure.
	Update(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) bool
	Evaluate(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) Decision
	ShouldSend(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) bool
}

type service struct {
	store     Store
	defaultTZ string
	now       func() time.Time
}

func NewService(store Store, defaultTZ string) Service {
	return &service{store: store, defaultTZ: defaultTZ, now: time.Now}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	p, err := s.store.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load preferences: %v: %w", err, domain.ErrPersistence)
	}

	def := domain.DefaultPreferences(userID, s.defaultTZ, s.now().UTC())
	if err := s.store.Create(ctx, def); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// created concurrently
			p, err := s.store.Get(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("reload preferences: %v: %w", err, domain.ErrPersistence)
			}
			return p, nil
		}
		return nil, fmt.Errorf("create default preferences: %v: %w", err, domain.ErrPersistence)
	}
	slog.Info("default notification preferences created", "user_id", userID)
	return def, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) bool {
	updates, err := patch(req)
	if err != nil {
		slog.Warn("rejected preference update", "user_id", userID, "err", err)
		return false
	}
	if len(updates) == 0 {
		return true
	}
	if _, err := s.Get(ctx, userID); err != nil {
		slog.Error("failed to load preferences for update", "user_id", userID, "err", err)
		return false
	}
	if err := s.store.Update(ctx, userID, updates, s.now().UTC()); err != nil {
		slog.Error("failed to update preferences", "user_id", userID, "err", err)
		return false
	}
	return true
}

func (s *service) Evaluate(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) Decision {
	switch v := r.(type) {
	case domain.DemoIdentity:
		return Decision{Allowed: true}
	case domain.RealIdentity:
		p, err := s.Get(ctx, v.UserID)
		if err != nil {
			slog.Error("preferences unavailable, suppressing notification", "user_id", v.UserID, "kind", kind, "err", err)
			return Decision{Reason: "preferences unavailable"}
		}
		return s.decide(p, kind)
	default:
		return Decision{Reason: "unknown recipient"}
	}
}

func (s *service) ShouldSend(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) bool {
	return s.Evaluate(ctx, r, kind).Allowed
}

func (s *service) decide(p *domain.NotificationPreferences, kind domain.NotificationKind) Decision {
	if !p.SMSEnabled {
		return Decision{Reason: "sms notifications disabled"}
	}
	if !p.KindEnabled(kind) {
		return Decision{Reason: fmt.Sprintf("%s notifications disabled", kind)}
	}
	if IsQuiet(p, s.now().UTC(), s.defaultTZ) {
		return Decision{Reason: "quiet hours"}
	}
	return Decision{Allowed: true}
}

// patch converts the non-nil request fields to stored attribute updates.
// An empty quiet-hours string clears that bound.
func patch(req domain.UpdatePreferencesRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	for name, v := range map[string]*bool{
		"sms_enabled":        req.SMSEnabled,
		"new_matches":        req.NewMatches,
		"profile_views":      req.ProfileViews,
		"messages":           req.Messages,
		"activity_reminders": req.ActivityReminders,
	} {
		if v != nil {
			updates[name] = *v
		}
	}
	for name, v := range map[string]*string{
		"quiet_hours_start": req.QuietHoursStart,
		"quiet_hours_end":   req.QuietHoursEnd,
	} {
		if v == nil {
			continue
		}
		clock := strings.TrimSpace(*v)
		if clock == "" {
			updates[name] = nil
			continue
		}
		if _, ok := parseClock(clock); !ok {
			return nil, fmt.Errorf("%s must be HH:MM: %w", name, domain.ErrValidation)
		}
		updates[name] = clock
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			return nil, fmt.Errorf("unknown timezone %q: %w", *req.Timezone, domain.ErrValidation)
		}
		updates["timezone"] = *req.Timezone
	}
	return updates, nil
}
