package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/observability/metrics"
	"github.com/matching-sms-api/internal/pkg/phone"
	"golang.org/x/crypto/bcrypt"
)

type SendCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Code        string `json:"code" validate:"required"`
}

// CodeStore holds at most one pending code per phone.
type CodeStore interface {
	Put(ctx context.Context, c *domain.PendingCode) error
	Get(ctx context.Context, phone string) (*domain.PendingCode, error)
	// Consume removes the entry only while it still holds codeHash.
	Consume(ctx context.Context, phone, codeHash string) (bool, error)
	List(ctx context.Context) ([]domain.PendingCode, error)
}

type SendThrottle interface {
	Allow(ctx context.Context, phone string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

type IdentityResolver interface {
	ResolveVerified(ctx context.Context, phone string) (*domain.Identity, error)
}

type SessionIssuer interface {
	Issue(ctx context.Context, identity *domain.Identity) (*domain.Session, error)
}

// Service issues and verifies one-time phone codes.
type Service interface {
	// SendCode stores a fresh code for the phone and texts it. The normalized
	// phone is returned even when delivery fails.
	SendCode(ctx context.Context, rawPhone string) (string, error)
	VerifyCode(ctx context.Context, rawPhone, code string) (*domain.Session, error)
	PendingCodes(ctx context.Context) ([]domain.PendingCodeView, error)
}

// ServiceDeps groups the collaborators of the OTP service. Throttle may be nil.
type ServiceDeps struct {
	Codes      CodeStore
	Throttle   SendThrottle
	SMSSender  SMSSender
	Identities IdentityResolver
	Sessions   SessionIssuer
	TTL        time.Duration
	HashCost   int
	Now        func() time.Time
}

type service struct {
	codes      CodeStore
	throttle   SendThrottle
	sms        SMSSender
	identities IdentityResolver
	sessions   SessionIssuer
	ttl        time.Duration
	hashCost   int
	now        func() time.Time
}

func NewService(d ServiceDeps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.TTL <= 0 {
		d.TTL = 5 * time.Minute
	}
	return &service{
		codes:      d.Codes,
		throttle:   d.Throttle,
		sms:        d.SMSSender,
		identities: d.Identities,
		sessions:   d.Sessions,
		ttl:        d.TTL,
		hashCost:   d.HashCost,
		now:        d.Now,
	}
}

func (s *service) SendCode(ctx context.Context, rawPhone string) (string, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		metrics.OTPIssuedTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, normalized); err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				metrics.OTPIssuedTotal.WithLabelValues("throttled").Inc()
				return normalized, err
			}
			metrics.OTPIssuedTotal.WithLabelValues("store_error").Inc()
			return normalized, fmt.Errorf("throttle: %v: %w", err, domain.ErrPersistence)
		}
	}

	code, err := generateCode()
	if err != nil {
		return normalized, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return normalized, fmt.Errorf("hash code: %w", err)
	}
	now := s.now().UTC()
	pc := &domain.PendingCode{
		Phone:     normalized,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.codes.Put(ctx, pc); err != nil {
		metrics.OTPIssuedTotal.WithLabelValues("store_error").Inc()
		return normalized, fmt.Errorf("store code: %v: %w", err, domain.ErrPersistence)
	}

	if _, err := s.sms.SendSMS(ctx, normalized, codeMessage(code, s.ttl)); err != nil {
		slog.Error("verification code delivery failed", "phone", normalized, "err", err)
		metrics.OTPIssuedTotal.WithLabelValues("transport_error").Inc()
		return normalized, fmt.Errorf("deliver code: %v: %w", err, domain.ErrTransport)
	}
	slog.Info("verification code sent", "phone", normalized, "expires_at", pc.ExpiresAt)
	metrics.OTPIssuedTotal.WithLabelValues("sent").Inc()
	return normalized, nil
}

func (s *service) VerifyCode(ctx context.Context, rawPhone, code string) (*domain.Session, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("code is required: %w", domain.ErrValidation)
	}

	pc, err := s.codes.Get(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.OTPVerificationsTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("no verification code found for this phone number: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load code: %v: %w", err, domain.ErrPersistence)
	}
	if pc.Expired(s.now()) {
		if _, err := s.codes.Consume(ctx, normalized, pc.CodeHash); err != nil {
			slog.Warn("failed to delete expired code", "phone", normalized, "err", err)
		}
		metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	}
	if bcrypt.CompareHashAndPassword([]byte(pc.CodeHash), []byte(code)) != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("mismatch").Inc()
		return nil, fmt.Errorf("invalid verification code: %w", domain.ErrMismatch)
	}

	consumed, err := s.codes.Consume(ctx, normalized, pc.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("consume code: %v: %w", err, domain.ErrPersistence)
	}
	if !consumed {
		metrics.OTPVerificationsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("verification code already used or replaced: %w", domain.ErrNotFound)
	}

	identity, err := s.identities.ResolveVerified(ctx, normalized)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Issue(ctx, identity)
	if err != nil {
		return nil, err
	}
	metrics.OTPVerificationsTotal.WithLabelValues("verified").Inc()
	slog.Info("phone verified", "phone", normalized, "user_id", identity.UserID)
	return sess, nil
}

func (s *service) PendingCodes(ctx context.Context) ([]domain.PendingCodeView, error) {
	codes, err := s.codes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list codes: %v: %w", err, domain.ErrPersistence)
	}
	views := make([]domain.PendingCodeView, 0, len(codes))
	for _, c := range codes {
		views = append(views, domain.PendingCodeView{Phone: c.Phone, Expires: c.ExpiresAt})
	}
	return views, nil
}

// generateCode returns a uniformly random code in 100000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func codeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your Matching verification code is: %s. Valid for %d minutes. ☕", code, int(ttl.Minutes()))
}
