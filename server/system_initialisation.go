package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// InitialiseSystem creates the admin account named by ADMIN_EMAIL if it does not exist.
// A generated password is logged once, on the run that creates the account.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	email := s.config.GetAdminEmail()
	if email == "" {
		log.Debug().Msg("ADMIN_EMAIL not set, skipping admin bootstrap")
		return nil
	}

	configured := s.config.GetAdminPassword()
	password, err := s.services.Auth.EnsureAdmin(ctx, email, configured)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin: %w", err)
	}
	if password == "" {
		log.Debug().Str("email", email).Msg("admin account already exists")
		return nil
	}

	log.Info().Msg("📋 System Configuration:")
	log.Info().Msgf("   Base URL:    %s", s.config.GetPublicBaseURL())
	log.Info().Msg("👤 Admin Credentials:")
	log.Info().Msgf("   Email:       %s", email)
	if configured == "" {
		log.Info().Msgf("   Password:    %s     (⚠️ generated, change it after the first login)", password)
	} else {
		log.Info().Msg("   Password:    from ADMIN_PASSWORD")
	}
	return nil
}
