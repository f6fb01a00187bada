package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/app"
	"github.com/jrsteele09/go-property-market/internal/config"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/store"
	"github.com/jrsteele09/go-property-market/mail"
	memstore "github.com/jrsteele09/go-property-market/objectstore/memory"
	"github.com/jrsteele09/go-property-market/server"
	"github.com/jrsteele09/go-property-market/token"
	"github.com/jrsteele09/go-property-market/users"
)

const (
	testPassword  = "Password123"
	adminEmail    = "admin@example.com"
	adminPassword = "AdminPass123"
	testOrigin    = "http://app.test"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// pngImage starts with the PNG signature so content sniffing reports image/png
var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type testFixture struct {
	server  *server.Server
	mailer  *mail.Recorder
	events  *events.Recorder
	objects *memstore.Store
}

func setupTestFixture(t *testing.T, opts ...server.Option) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("ADMIN_EMAIL", adminEmail)
	t.Setenv("ADMIN_PASSWORD", adminPassword)
	t.Setenv("ALLOWED_ORIGINS", testOrigin)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := config.New()
	f := &testFixture{
		mailer:  &mail.Recorder{},
		events:  &events.Recorder{},
		objects: memstore.New("http://api.test"),
	}
	a, err := app.Build(cfg, app.Deps{
		Repos:     store.Memory(),
		Objects:   f.objects,
		Mailer:    f.mailer,
		Publisher: f.events,
	})
	require.NoError(t, err)

	opts = append([]server.Option{
		server.WithMediaHandler(f.objects.Handler()),
		server.WithRateLimiter(server.NewRateLimiter(1000, 1000)),
	}, opts...)
	f.server, err = server.New(context.Background(), cfg, a.Services, opts...)
	require.NoError(t, err)
	return f
}

// do sends a request through the full server. body is JSON encoded unless it is an io.Reader.
func (f *testFixture) do(t *testing.T, method, path, accessToken string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// doFrom posts JSON from a specific connection address
func (f *testFixture) doFrom(t *testing.T, remoteAddr, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) lastCode(t *testing.T, email string) string {
	t.Helper()
	msg, ok := f.mailer.Last(email)
	require.True(t, ok, "no mail sent to %s", email)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(t, code)
	return code
}

func (f *testFixture) login(t *testing.T, email, password string) token.Pair {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteLogin, "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair token.Pair
	decode(t, rec, &pair)
	return pair
}

// signUp registers, verifies and logs in a user, returning its access token
func (f *testFixture) signUp(t *testing.T, email string, role users.RoleType) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteSignup, "", map[string]string{
		"email": email, "password": testPassword, "first_name": "Test", "role": string(role),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, server.RouteVerifyEmail, "", map[string]string{"email": email, "code": f.lastCode(t, email)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return f.login(t, email, testPassword).AccessToken
}

func (f *testFixture) createProperty(t *testing.T, ownerToken string, body map[string]any) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteProperties, ownerToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID string `json:"id"`
	}
	decode(t, rec, &p)
	return p.ID
}

func imageUpload(t *testing.T, field string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body
}

func TestNewRequiresServices(t *testing.T) {
	_, err := server.New(context.Background(), config.New(), server.Services{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteHealth, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	f := setupTestFixture(t)
	f.do(t, http.MethodGet, server.RouteHealth, "", nil)

	rec := f.do(t, http.MethodGet, server.RouteMetrics, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteProperties, "", nil, "X-Request-ID", "req-123")
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, server.RouteProperties, "", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCorsPreflight(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodOptions, server.RoutePayments, "", nil, "Origin", testOrigin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	rec = f.do(t, http.MethodOptions, server.RoutePayments, "", nil, "Origin", "http://evil.test")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t)
	f.server.RegisterRouteFunc("GET /api/panic", server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, f.server.APIMiddleware()...))

	rec := f.do(t, http.MethodGet, "/api/panic", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorOf(t, rec)
	require.Equal(t, "server_error", body.Error)
	require.Equal(t, apperrors.ErrInternal.Error(), body.ErrorDescription)
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	f := setupTestFixture(t, server.WithRateLimiter(server.NewRateLimiter(1, 2)))
	body := map[string]string{"email": "nobody@example.com", "password": "Wrong12345"}

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, server.RouteLogin, "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(t, http.MethodPost, server.RouteLogin, "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limited", errorOf(t, rec).Error)

	// a different client has its own bucket
	rec = f.doFrom(t, "198.51.100.20:4000", server.RouteLogin, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	f := setupTestFixture(t, server.WithRateLimiter(server.NewRateLimiter(1, 2)))
	body := map[string]string{"email": "nobody@example.com", "password": "Wrong12345"}

	limited := 0
	for i := 0; i < 20; i++ {
		rec := f.do(t, http.MethodPost, server.RouteLogin, "", body, "X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	require.GreaterOrEqual(t, limited, 17)
}

func TestRateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "192.0.2.0/24")
	f := setupTestFixture(t, server.WithRateLimiter(server.NewRateLimiter(1, 1)))
	body := map[string]string{"email": "nobody@example.com", "password": "Wrong12345"}

	// httptest requests come from 192.0.2.1, inside the trusted range
	rec := f.do(t, http.MethodPost, server.RouteLogin, "", body, "X-Forwarded-For", "198.51.100.7")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, server.RouteLogin, "", body, "X-Forwarded-For", "198.51.100.8")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// a spoofed leftmost hop does not give the same client a fresh bucket
	rec = f.do(t, http.MethodPost, server.RouteLogin, "", body, "X-Forwarded-For", "10.9.9.9, 198.51.100.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := server.NewRateLimiter(1, 1)
	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
	require.Equal(t, 0, rl.Cleanup(time.Hour))
	require.Equal(t, 1, rl.Cleanup(-time.Second))
	require.True(t, rl.Allow("a"))
}
