package config

import (
	"sort"
	"strings"
)

const anyOrigin = "*"

type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins is the set of browser origins the API answers CORS requests for
type AllowedOrigins map[string]struct{}

// ParseAllowedOrigins builds the origin set from a comma separated list.
// Trailing slashes are dropped so "http://app.test/" matches the Origin header.
func ParseAllowedOrigins(list string) AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range strings.Split(list, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

// AllowsAny reports whether "*" was configured
func (a AllowedOrigins) AllowsAny() bool {
	return a.IsAllowedOrigin(anyOrigin)
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for o := range a {
		origins = append(origins, o)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (Cors) GetAllowedOrigins() AllowedOrigins {
	return ParseAllowedOrigins(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization, Idempotency-Key, X-Request-ID"
}
