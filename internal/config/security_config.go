package config

import (
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type SecurityConfig interface {
	GetOTPExpiry() time.Duration
	GetOTPMaxAttempts() int
	GetRateLimitRPS() int
	GetRateLimitBurst() int
	GetMaxImageBytes() int64
	GetTrustedProxies() TrustedProxies
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetOTPExpiry() time.Duration {
	return GetDurationEnv("OTP_TTL", 10*time.Minute)
}

func (Security) GetOTPMaxAttempts() int {
	return GetIntEnv("OTP_MAX_ATTEMPTS", 5)
}

func (Security) GetRateLimitRPS() int {
	return GetIntEnv("RATE_LIMIT_RPS", 5)
}

func (Security) GetRateLimitBurst() int {
	return GetIntEnv("RATE_LIMIT_BURST", 10)
}

func (Security) GetMaxImageBytes() int64 {
	return int64(GetIntEnv("MAX_IMAGE_BYTES", 5<<20)) // 5 MiB
}

// GetTrustedProxies reads TRUSTED_PROXIES, a comma separated list of IPs or CIDRs whose
// X-Forwarded-For header is believed. Empty means the connection address is always used.
func (Security) GetTrustedProxies() TrustedProxies {
	return ParseTrustedProxies(GetEnv("TRUSTED_PROXIES", ""))
}

// TrustedProxies are the reverse proxies allowed to report a client address
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts IPs and CIDRs; invalid entries are logged and skipped
func ParseTrustedProxies(list string) TrustedProxies {
	var proxies TrustedProxies
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			log.Warn().Str("entry", entry).Msg("ignoring invalid TRUSTED_PROXIES entry")
			continue
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies
}

func (t TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
