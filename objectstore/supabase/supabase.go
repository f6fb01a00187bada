package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-property-market/objectstore"
)

var _ objectstore.Store = (*Store)(nil)

type Config struct {
	ProjectURL string
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// Store writes objects to a public Supabase Storage bucket
type Store struct {
	storageURL string
	serviceKey string
	bucket     string
	client     *http.Client
}

func New(cfg Config) (*Store, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("service key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if _, err := url.Parse(cfg.ProjectURL); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		storageURL: strings.TrimRight(cfg.ProjectURL, "/") + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		client:     client,
	}, nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (objectstore.Object, error) {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return objectstore.Object{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return objectstore.Object{}, fmt.Errorf("read upload: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	urlStr := fmt.Sprintf("%s/object/%s/%s", s.storageURL, s.bucket, escapeKey(key))
	respBody, statusCode, err := s.request(ctx, http.MethodPost, urlStr, data, map[string]string{
		"Content-Type":  contentType,
		"Cache-Control": "3600",
		"x-upsert":      "true",
	})
	if err != nil {
		return objectstore.Object{}, err
	}
	if statusCode >= 400 {
		return objectstore.Object{}, parseError(respBody, statusCode)
	}
	return objectstore.Object{Key: key, URL: s.URL(key), Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	body, err := json.Marshal(map[string][]string{"prefixes": {key}})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	respBody, statusCode, err := s.request(ctx, http.MethodDelete, s.storageURL+"/object/"+s.bucket, body,
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	if statusCode == http.StatusNotFound {
		return nil
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// URL returns the public URL for a key
func (s *Store) URL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.storageURL, s.bucket, escapeKey(key))
}

func (s *Store) request(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Error is a non-2xx response from the storage API
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase storage: %s (status %d)", e.Message, e.StatusCode)
}

func parseError(body []byte, statusCode int) error {
	var errResp struct {
		StatusCode string `json:"statusCode"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{Code: "unknown", Message: string(body), StatusCode: statusCode}
	}
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	code := errResp.Code
	if code == "" {
		code = errResp.Error
	}
	return &Error{Code: code, Message: msg, StatusCode: statusCode}
}
