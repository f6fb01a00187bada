package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/mail"
	"github.com/jrsteele09/go-property-market/otp"
	"github.com/jrsteele09/go-property-market/token"
	"github.com/jrsteele09/go-property-market/token/refresh"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxNameLength = 100

// Service handles sign up, email verification, login and password management
type Service struct {
	users         users.UserRepo
	tokens        *token.Manager
	refreshTokens *refresh.Manager
	otps          *otp.Manager
	mailer        mail.Mailer
	appName       string
	otpExpiry     time.Duration
	nowTime       func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithAppName sets the name used in outgoing email
func WithAppName(name string) ServiceOption {
	return func(s *Service) {
		s.appName = name
	}
}

// WithOTPExpiry sets the lifetime quoted in passcode emails
func WithOTPExpiry(expiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.otpExpiry = expiry
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(
	userRepo users.UserRepo,
	tokens *token.Manager,
	refreshTokens *refresh.Manager,
	otps *otp.Manager,
	mailer mail.Mailer,
	options ...ServiceOption,
) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if refreshTokens == nil {
		return nil, errors.New("[NewService] refresh token manager is required")
	}
	if otps == nil {
		return nil, errors.New("[NewService] otp manager is required")
	}
	if mailer == nil {
		return nil, errors.New("[NewService] mailer is required")
	}

	s := &Service{
		users:         userRepo,
		tokens:        tokens,
		refreshTokens: refreshTokens,
		otps:          otps,
		mailer:        mailer,
		appName:       "Property Market",
		otpExpiry:     10 * time.Minute,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SignUp creates an unverified account and emails a verification code
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*users.User, error) {
	email := users.NormaliseEmail(req.Email)
	if err := users.ValidateEmail(email); err != nil {
		return nil, apperrors.Validationf("%s", err.Error())
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		return nil, apperrors.Validationf("%s", err.Error())
	}
	if err := users.ValidateSignupRole(req.Role); err != nil {
		return nil, apperrors.Validationf("%s", err.Error())
	}
	if err := validateProfile(req.FirstName, req.LastName, req.Phone); err != nil {
		return nil, err
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[SignUp] HashPassword")
	}

	now := s.nowTime().UTC()
	user := &users.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.Is(err, apperrors.ErrEmailTaken) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[SignUp] users.Create")
	}
	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")

	s.sendCode(ctx, user.Email, otp.PurposeEmailVerification)
	return user, nil
}

// VerifyEmail marks the account verified when the code matches
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = users.NormaliseEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.ErrInvalidOTP
	}
	if user.Verified {
		return nil
	}
	if err := s.otps.Verify(ctx, email, otp.PurposeEmailVerification, code); err != nil {
		return err
	}
	if err := s.users.SetVerified(ctx, user.ID, true); err != nil {
		return errors.Wrap(err, "[VerifyEmail] SetVerified")
	}
	return nil
}

// ResendVerification re-issues the verification code. Unknown and already verified
// addresses succeed silently.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = users.NormaliseEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user.Verified {
		return nil
	}
	s.sendCode(ctx, email, otp.PurposeEmailVerification)
	return nil
}

// Login checks credentials and returns a new token pair
func (s *Service) Login(ctx context.Context, email, password string) (*token.Pair, error) {
	user, err := s.users.GetByEmail(ctx, users.NormaliseEmail(email))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Login] GetByEmail")
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if !user.Verified {
		return nil, apperrors.ErrUserNotVerified
	}

	user.LastLogin = s.nowTime().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, user.LastLogin); err != nil {
		return nil, errors.Wrap(err, "[Login] RecordLogin")
	}
	return s.issuePair(ctx, user)
}

// Refresh rotates the refresh token and issues a new access token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	userID, newRefresh, err := s.refreshTokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		_ = s.refreshTokens.Delete(ctx, userID)
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if user.Blocked {
		_ = s.refreshTokens.Delete(ctx, userID)
		return nil, apperrors.ErrUserBlocked
	}
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Refresh] IssueAccessToken")
	}
	return s.pair(access, newRefresh), nil
}

// Logout revokes the access token and the user's refresh token
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(accessToken); err != nil {
		return errors.Wrap(err, "[Logout] Revoke")
	}
	return s.refreshTokens.Delete(ctx, claims.Subject)
}

// ForgotPassword emails a reset code when the account exists. It never reports whether it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = users.NormaliseEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil
	}
	s.sendCode(ctx, email, otp.PurposePasswordReset)
	return nil
}

// ResetPassword sets a new password using an emailed reset code. Existing sessions are ended.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return apperrors.Validationf("%s", err.Error())
	}
	email = users.NormaliseEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.ErrInvalidOTP
	}
	if err := s.otps.Verify(ctx, email, otp.PurposePasswordReset, code); err != nil {
		return err
	}
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[ResetPassword] HashPassword")
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return errors.Wrap(err, "[ResetPassword] SetPassword")
	}
	// the code proved ownership of the address
	if !user.Verified {
		if err := s.users.SetVerified(ctx, user.ID, true); err != nil {
			return errors.Wrap(err, "[ResetPassword] SetVerified")
		}
	}
	return s.refreshTokens.Delete(ctx, user.ID)
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return apperrors.ErrInvalidCredentials
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return apperrors.Validationf("%s", err.Error())
	}
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[ChangePassword] HashPassword")
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return errors.Wrap(err, "[ChangePassword] SetPassword")
	}
	return s.refreshTokens.Delete(ctx, user.ID)
}

// Authenticate resolves a bearer access token to an active user
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "[Authenticate] GetByID")
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*users.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	utils.Apply(&user.FirstName, update.FirstName)
	utils.Apply(&user.LastName, update.LastName)
	utils.Apply(&user.Phone, update.Phone)
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.Phone = strings.TrimSpace(user.Phone)
	if err := validateProfile(user.FirstName, user.LastName, user.Phone); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.nowTime().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[UpdateProfile] users.Update")
	}
	return s.users.GetByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, actor *users.User, filter users.ListFilter) (users.ListResponse, error) {
	if !actor.IsAdmin() {
		return users.ListResponse{}, apperrors.ErrForbidden
	}
	filter.Offset, filter.Limit = utils.ClampPage(filter.Offset, filter.Limit)
	return s.users.List(ctx, filter)
}

// SetBlocked blocks or unblocks an account. Blocking ends the user's refresh session.
func (s *Service) SetBlocked(ctx context.Context, actor *users.User, userID string, blocked bool) error {
	if !actor.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if actor.ID == userID {
		return apperrors.Validationf("admins cannot block themselves")
	}
	if err := s.users.SetBlocked(ctx, userID, blocked); err != nil {
		return err
	}
	if blocked {
		if err := s.refreshTokens.Delete(ctx, userID); err != nil {
			return errors.Wrap(err, "[SetBlocked] delete refresh token")
		}
	}
	log.Info().Str("actor_id", actor.ID).Str("user_id", userID).Bool("blocked", blocked).Msg("user block state changed")
	return nil
}

// EnsureAdmin creates a verified admin account for email if none exists. When password is
// empty one is generated. The returned password is empty if the account already existed.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (string, error) {
	email = users.NormaliseEmail(email)
	if err := users.ValidateEmail(email); err != nil {
		return "", apperrors.Validationf("%s", err.Error())
	}
	if existing, err := s.users.GetByEmail(ctx, email); err == nil {
		if !existing.IsAdmin() {
			return "", errors.Wrapf(apperrors.ErrConflict, "%s exists and is not an admin", email)
		}
		return "", nil
	} else if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return "", errors.Wrap(err, "[EnsureAdmin] GetByEmail")
	}

	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return "", errors.Wrap(err, "[EnsureAdmin] generate password")
		}
		password = generated
	} else if err := users.ValidatePasswordStrength(password); err != nil {
		return "", apperrors.Validationf("%s", err.Error())
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, "[EnsureAdmin] HashPassword")
	}
	now := s.nowTime().UTC()
	admin := &users.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         users.RoleAdmin,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return "", errors.Wrap(err, "[EnsureAdmin] users.Create")
	}
	return password, nil
}

func (s *Service) issuePair(ctx context.Context, user *users.User) (*token.Pair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[issuePair] IssueAccessToken")
	}
	refreshToken, err := s.refreshTokens.Create(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[issuePair] refresh token")
	}
	return s.pair(access, refreshToken), nil
}

func (s *Service) pair(access, refreshToken string) *token.Pair {
	return &token.Pair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTokenExpiry().Seconds()),
	}
}

// sendCode issues a passcode and mails it. Failures are logged; the user can ask again.
func (s *Service) sendCode(ctx context.Context, email string, purpose otp.Purpose) {
	code, err := s.otps.Issue(ctx, email, purpose)
	if err != nil {
		log.Error().Err(err).Str("purpose", string(purpose)).Msg("failed to issue one-time passcode")
		return
	}
	msg := mail.VerificationMessage(s.appName, email, code, s.otpExpiry)
	if purpose == otp.PurposePasswordReset {
		msg = mail.PasswordResetMessage(s.appName, email, code, s.otpExpiry)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("purpose", string(purpose)).Msg("failed to send one-time passcode")
	}
}

func validateProfile(firstName, lastName, phone string) error {
	if utf8.RuneCountInString(firstName) > maxNameLength || utf8.RuneCountInString(lastName) > maxNameLength {
		return apperrors.Validationf("names must be at most %d characters", maxNameLength)
	}
	if len(phone) > 32 {
		return apperrors.Validationf("phone must be at most 32 characters")
	}
	return nil
}

func generatePassword() (string, error) {
	for {
		b := make([]byte, 18)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		pw := base64.RawURLEncoding.EncodeToString(b)
		if users.ValidatePasswordStrength(pw) == nil {
			return pw, nil
		}
	}
}
