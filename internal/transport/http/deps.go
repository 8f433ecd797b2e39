package http

import (
	"github.com/matching-sms-api/internal/application/auth"
	"github.com/matching-sms-api/internal/application/identity"
	"github.com/matching-sms-api/internal/application/notification"
	"github.com/matching-sms-api/internal/application/photo"
	"github.com/matching-sms-api/internal/application/preference"
	"github.com/matching-sms-api/internal/application/session"
	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/matching-sms-api/internal/infrastructure/jwt"
	redisinfra "github.com/matching-sms-api/internal/infrastructure/redis"
	s3infra "github.com/matching-sms-api/internal/infrastructure/s3"
	"github.com/matching-sms-api/internal/infrastructure/sns"
	appmiddleware "github.com/matching-sms-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies of the application.
type Deps struct {
	IdentityRepo        *dynamo.IdentityRepo
	PreferencesRepo     *dynamo.PreferencesRepo
	NotificationLogRepo *dynamo.NotificationLogRepo
	Codes               *redisinfra.CodeStore
	Throttle            *redisinfra.SendThrottle
	PhotoStore          *s3infra.Store
	SMSSender           sns.SMSSender
	JWTProvider         *jwtinfra.Provider
}

// Services are the application services shared by the router and the event consumer.
type Services struct {
	Auth          auth.Service
	Identities    identity.Service
	Preferences   preference.Service
	Notifications notification.Service
	Photos        photo.Service
	Tokens        appmiddleware.TokenVerifier
}

// NewServices wires the application services from infrastructure.
func NewServices(cfg *config.Config, deps *Deps) *Services {
	identitySvc := identity.NewService(deps.IdentityRepo, cfg.DemoPhone)
	prefSvc := preference.NewService(deps.PreferencesRepo, cfg.DefaultTimezone)

	authDeps := auth.ServiceDeps{
		Codes:      deps.Codes,
		SMSSender:  deps.SMSSender,
		Identities: identitySvc,
		Sessions:   session.NewService(deps.JWTProvider),
		TTL:        cfg.OTPTTL,
		HashCost:   cfg.OTPHashCost,
	}
	if deps.Throttle != nil {
		authDeps.Throttle = deps.Throttle
	}

	return &Services{
		Auth:        auth.NewService(authDeps),
		Identities:  identitySvc,
		Preferences: prefSvc,
		Notifications: notification.NewService(notification.ServiceDeps{
			Gate:       prefSvc,
			Log:        deps.NotificationLogRepo,
			SMSSender:  deps.SMSSender,
			Recipients: identitySvc,
			LogSkipped: cfg.NotifyLogSkipped,
			Timeout:    cfg.TransportTimeout,
		}),
		Photos: photo.NewService(deps.PhotoStore),
		Tokens: deps.JWTProvider,
	}
}
