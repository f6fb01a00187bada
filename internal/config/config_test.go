package config_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/stretchr/testify/require"
)

func TestGetPortPrefixesColon(t *testing.T) {
	t.Setenv("PORT", "9000")
	require.Equal(t, ":9000", config.New().GetPort())

	t.Setenv("PORT", ":9001")
	require.Equal(t, ":9001", config.New().GetPort())
}

func TestDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("OTP_TTL", "soon")
	require.Equal(t, 10*time.Minute, config.New().GetOTPExpiry())

	t.Setenv("OTP_TTL", "2m")
	require.Equal(t, 2*time.Minute, config.New().GetOTPExpiry())
}

func TestParseAllowedOrigins(t *testing.T) {
	origins := config.ParseAllowedOrigins(" http://a.test/, http://b.test ,,")
	require.True(t, origins.IsAllowedOrigin("http://a.test"))
	require.True(t, origins.IsAllowedOrigin("http://b.test"))
	require.False(t, origins.IsAllowedOrigin("http://c.test"))
	require.False(t, origins.AllowsAny())
	require.Equal(t, "http://a.test, http://b.test", origins.String())
	require.True(t, config.ParseAllowedOrigins("*").AllowsAny())
}

func TestJWTSecretStableWithinProcess(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	c := config.New()
	require.Equal(t, c.GetJWTSecret(), c.GetJWTSecret())

	t.Setenv("JWT_SECRET", "s3cret")
	require.Equal(t, []byte("s3cret"), c.GetJWTSecret())
}

func TestSqliteDefaultDSN(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")
	require.Equal(t, "file:market.db?cache=shared", config.New().GetDatabaseURL())
}

func TestParseTrustedProxies(t *testing.T) {
	proxies := config.ParseTrustedProxies(" 10.0.0.0/8, 192.0.2.1 , not-an-ip, ::1")
	require.Len(t, proxies, 3)
	require.True(t, proxies.Contains(netip.MustParseAddr("10.1.2.3")))
	require.True(t, proxies.Contains(netip.MustParseAddr("192.0.2.1")))
	require.True(t, proxies.Contains(netip.MustParseAddr("::ffff:192.0.2.1")))
	require.True(t, proxies.Contains(netip.MustParseAddr("::1")))
	require.False(t, proxies.Contains(netip.MustParseAddr("192.0.2.2")))

	t.Setenv("TRUSTED_PROXIES", "")
	require.Empty(t, config.New().GetTrustedProxies())
}
