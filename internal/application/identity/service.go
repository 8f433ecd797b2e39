package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/pkg/id"
	"github.com/matching-sms-api/internal/pkg/phone"
	"github.com/matching-sms-api/internal/pkg/validate"
)

// Store persists identities, their phone claims and profiles.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	Create(ctx context.Context, identity *domain.Identity) error
	CreateWithProfile(ctx context.Context, identity *domain.Identity, p *domain.Profile) error
	CompleteWithProfile(ctx context.Context, userID string, p *domain.Profile) error
}

// Service reconciles phone numbers and caller-held ids into one identity per phone.
type Service interface {
	// ResolveVerified returns the identity owning phone, creating it on first verification.
	ResolveVerified(ctx context.Context, phone string) (*domain.Identity, error)
	// CompleteProfile creates or updates the identity and upserts its profile.
	// It returns the effective id, which is the phone owner's id when the caller's id is unknown.
	CompleteProfile(ctx context.Context, req domain.CreateProfileRequest) (string, error)
	// RecipientForPhone resolves a notification recipient from a raw phone or the demo user id.
	RecipientForPhone(ctx context.Context, rawPhone, userID string) (domain.Recipient, error)
	// RecipientByID resolves a notification recipient from a user id.
	RecipientByID(ctx context.Context, userID string) (domain.Recipient, error)
}

type service struct {
	store     Store
	demoPhone string
	now       func() time.Time
}

func NewService(store Store, demoPhone string) Service {
	return &service{store: store, demoPhone: demoPhone, now: time.Now}
}

func (s *service) ResolveVerified(ctx context.Context, phone string) (*domain.Identity, error) {
	existing, err := s.lookupPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now().UTC()
	ident := &domain.Identity{
		UserID:      id.New(),
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, ident); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create identity: %v: %w", err, domain.ErrPersistence)
		}
		// another verification claimed the phone first; use its identity
		winner, err := s.store.GetByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("reload identity: %v: %w", err, domain.ErrPersistence)
		}
		return winner, nil
	}
	slog.Info("identity created", "user_id", ident.UserID, "phone", phone)
	return ident, nil
}

func (s *service) CompleteProfile(ctx context.Context, req domain.CreateProfileRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	var normalized string
	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) != "" {
		p, err := phone.Normalize(*req.PhoneNumber)
		if err != nil {
			return "", err
		}
		normalized = p
	}

	byID, err := s.store.Get(ctx, req.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("lookup identity: %v: %w", err, domain.ErrPersistence)
	}
	var byPhone *domain.Identity
	if normalized != "" {
		if byPhone, err = s.lookupPhone(ctx, normalized); err != nil {
			return "", err
		}
	}

	effectiveID := req.UserID
	if byID == nil && byPhone != nil {
		effectiveID = byPhone.UserID
		slog.Info("profile reconciled to existing identity", "requested_id", req.UserID, "user_id", effectiveID)
	}

	now := s.now().UTC()
	profile := &domain.Profile{
		UserID:            effectiveID,
		PhotoURL:          req.PhotoURL,
		QuestionnaireData: req.QuestionnaireData,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if byID == nil && byPhone == nil {
		err = s.store.CreateWithProfile(ctx, &domain.Identity{
			UserID:           effectiveID,
			PhoneNumber:      normalized,
			ProfileCompleted: true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}, profile)
	} else {
		err = s.store.CompleteWithProfile(ctx, effectiveID, profile)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", fmt.Errorf("identity changed concurrently, retry: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("save profile: %v: %w", err, domain.ErrPersistence)
	}
	return effectiveID, nil
}

func (s *service) RecipientForPhone(ctx context.Context, rawPhone, userID string) (domain.Recipient, error) {
	if userID == domain.DemoUserID {
		return domain.DemoIdentity{PhoneNumber: s.demoPhone}, nil
	}
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	ident, err := s.lookupPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, fmt.Errorf("no user with phone %s: %w", normalized, domain.ErrNotFound)
	}
	return domain.RealIdentity{UserID: ident.UserID, PhoneNumber: ident.PhoneNumber}, nil
}

func (s *service) RecipientByID(ctx context.Context, userID string) (domain.Recipient, error) {
	if userID == domain.DemoUserID {
		return domain.DemoIdentity{PhoneNumber: s.demoPhone}, nil
	}
	ident, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup identity: %v: %w", err, domain.ErrPersistence)
	}
	if ident.PhoneNumber == "" {
		return nil, fmt.Errorf("user %s has no phone number: %w", userID, domain.ErrNotFound)
	}
	return domain.RealIdentity{UserID: ident.UserID, PhoneNumber: ident.PhoneNumber}, nil
}

// lookupPhone returns nil without error when no identity owns phone.
func (s *service) lookupPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	ident, err := s.store.GetByPhone(ctx, phone)
	if err == nil {
		return ident, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("lookup phone: %v: %w", err, domain.ErrPersistence)
}
