package otp_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/otp"
	otprepofake "github.com/jrsteele09/go-property-market/otp/repofake"
	"github.com/stretchr/testify/require"
)

const testEmail = "jane@example.com"

type testSettings struct{}

func (testSettings) GetOTPExpiry() time.Duration { return 10 * time.Minute }
func (testSettings) GetOTPMaxAttempts() int      { return 3 }

type testFixture struct {
	repo    *otprepofake.FakeOTPRepo
	manager *otp.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		repo: otprepofake.NewFakeOTPRepo(),
		now:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = otp.NewManager(f.repo, testSettings{}, otp.WithNowTime(func() time.Time { return f.now }))
	return f
}

func TestIssueAndVerify(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)
	require.Len(t, code, 6)

	stored, err := f.repo.Get(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)
	require.NotEqual(t, code, stored.CodeHash)

	require.NoError(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, code))

	// single use
	err = f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, code)
	require.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestVerifyWrongPurpose(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)

	err = f.manager.Verify(ctx, testEmail, otp.PurposePasswordReset, code)
	require.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestVerifyExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.manager.Issue(ctx, testEmail, otp.PurposePasswordReset)
	require.NoError(t, err)

	f.now = f.now.Add(11 * time.Minute)
	err = f.manager.Verify(ctx, testEmail, otp.PurposePasswordReset, code)
	require.ErrorIs(t, err, apperrors.ErrOTPExpired)

	_, err = f.repo.Get(ctx, testEmail, otp.PurposePasswordReset)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerifyAttemptsExhausted(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	require.ErrorIs(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, wrong), apperrors.ErrInvalidOTP)
	require.ErrorIs(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, wrong), apperrors.ErrInvalidOTP)
	require.ErrorIs(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, wrong), apperrors.ErrOTPAttemptsExceeded)

	// burned, even the right code no longer works
	require.ErrorIs(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, code), apperrors.ErrInvalidOTP)
}

func TestReissueReplacesCode(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)
	second, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)

	require.NoError(t, f.manager.Verify(ctx, testEmail, otp.PurposeEmailVerification, second))
}

func TestCleanup(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.manager.Issue(ctx, testEmail, otp.PurposeEmailVerification)
	require.NoError(t, err)

	n, err := f.manager.Cleanup(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	f.now = f.now.Add(time.Hour)
	n, err = f.manager.Cleanup(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
