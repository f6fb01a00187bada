// Package app wires repositories, managers and services into the set the HTTP server
// and the admin CLI share.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-property-market/auth"
	"github.com/jrsteele09/go-property-market/complaints"
	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/metrics"
	"github.com/jrsteele09/go-property-market/internal/store"
	"github.com/jrsteele09/go-property-market/mail"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/objectstore"
	"github.com/jrsteele09/go-property-market/otp"
	"github.com/jrsteele09/go-property-market/payments"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/reviews"
	"github.com/jrsteele09/go-property-market/server"
	"github.com/jrsteele09/go-property-market/token"
	"github.com/jrsteele09/go-property-market/token/refresh"
)

// Deps are the external resources the services run on
type Deps struct {
	Repos     *store.Repos
	Objects   objectstore.Store
	Mailer    mail.Mailer
	Publisher events.Publisher
	NowTime   func() time.Time
}

type App struct {
	Services server.Services
	Tokens   *token.Manager
	OTPs     *otp.Manager
}

// Build creates every domain service over deps
func Build(cfg config.Config, deps Deps) (*App, error) {
	if deps.Repos == nil || deps.Objects == nil || deps.Mailer == nil || deps.Publisher == nil {
		return nil, errors.New("[app.Build] repos, object store, mailer and publisher are required")
	}
	if strings.EqualFold(cfg.GetEnv(), "PROD") && !cfg.JWTSecretConfigured() {
		return nil, errors.New("[app.Build] JWT_SECRET is required in PROD")
	}
	now := deps.NowTime
	if now == nil {
		now = time.Now
	}
	repos := deps.Repos

	tokens := token.New(cfg.GetJWTSecret(),
		token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
		token.WithIssuer(cfg.GetAppName()),
		token.WithNowFunc(now),
	)
	refreshTokens := refresh.NewManager(repos.RefreshTokens, cfg)
	otps := otp.NewManager(repos.OTPs, cfg, otp.WithNowTime(now))

	authService, err := auth.NewService(repos.Users, tokens, refreshTokens, otps, deps.Mailer,
		auth.WithAppName(cfg.GetAppName()),
		auth.WithOTPExpiry(cfg.GetOTPExpiry()),
		auth.WithNowTime(now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[app.Build] auth")
	}

	notifier := notifications.NewService(repos.Notifications, deps.Publisher, notifications.WithNowTime(now))

	propertyService, err := properties.NewService(repos.Properties, deps.Objects,
		properties.WithMaxImageBytes(cfg.GetMaxImageBytes()),
		properties.WithNowTime(now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[app.Build] properties")
	}

	paymentService, err := payments.NewService(payments.Repos{
		Payments:   repos.Payments,
		Users:      repos.Users,
		Properties: repos.Properties,
	}, repos.Tx, notifier, payments.WithNowTime(now))
	if err != nil {
		return nil, errors.Wrap(err, "[app.Build] payments")
	}

	return &App{
		Services: server.Services{
			Auth:          authService,
			Properties:    propertyService,
			Payments:      paymentService,
			Reviews:       reviews.NewService(repos.Reviews, repos.Properties, notifier, reviews.WithNowTime(now)),
			Complaints:    complaints.NewService(repos.Complaints, repos.Properties, notifier, complaints.WithNowTime(now)),
			Notifications: notifier,
		},
		Tokens: tokens,
		OTPs:   otps,
	}, nil
}

// RunJanitor sweeps expired revocations and passcodes every interval until ctx is done
func (a *App) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Sweep runs one janitor pass. Revoked access tokens and passcodes are dropped once expired.
func (a *App) Sweep(ctx context.Context) {
	metrics.RecordJanitor("revoked_token", a.Tokens.CleanupRevokedTokens())
	n, err := a.OTPs.Cleanup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to remove expired passcodes")
		return
	}
	metrics.RecordJanitor("otp", n)
	if n > 0 {
		log.Debug().Int("removed", n).Msg("expired passcodes removed")
	}
}
