package session

import (
	"context"
	"fmt"

	"github.com/matching-sms-api/internal/domain"
	jwtinfra "github.com/matching-sms-api/internal/infrastructure/jwt"
)

type TokenSigner interface {
	Sign(identityID, phone string) (*jwtinfra.SignedToken, error)
}

// Service mints a session for a verified identity.
type Service interface {
	Issue(ctx context.Context, identity *domain.Identity) (*domain.Session, error)
}

type service struct {
	signer TokenSigner
}

func NewService(signer TokenSigner) Service {
	return &service{signer: signer}
}

func (s *service) Issue(_ context.Context, identity *domain.Identity) (*domain.Session, error) {
	if identity == nil || identity.UserID == "" {
		return nil, fmt.Errorf("identity required: %w", domain.ErrValidation)
	}
	st, err := s.signer.Sign(identity.UserID, identity.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &domain.Session{
		Token:     st.Token,
		TokenID:   st.ID,
		IssuedAt:  st.IssuedAt,
		ExpiresAt: st.ExpiresAt,
		User: domain.SessionUser{
			ID:               identity.UserID,
			PhoneNumber:      identity.PhoneNumber,
			Authenticated:    true,
			ProfileCompleted: identity.ProfileCompleted,
		},
	}, nil
}
