package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-property-market/events"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindPaymentSent      Kind = "payment_sent"
	KindPaymentReceived  Kind = "payment_received"
	KindReviewCreated    Kind = "review_created"
	KindComplaintFiled   Kind = "complaint_filed"
	KindComplaintUpdated Kind = "complaint_updated"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	Offset        int             `json:"offset"`
	Limit         int             `json:"limit"`
}

// Notifier is the part of Service other domains depend on
type Notifier interface {
	Notify(ctx context.Context, userID string, kind Kind, title, message string) error
}

type Service struct {
	repo      Repo
	publisher events.Publisher
	nowTime   func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, publisher events.Publisher, opts ...ServiceOption) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{repo: repo, publisher: publisher, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify stores a notification and then publishes it as notification.<kind>.
// Publishing is best effort; the stored row is authoritative.
func (s *Service) Notify(ctx context.Context, userID string, kind Kind, title, message string) error {
	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: s.nowTime().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return errors.Wrap(err, "[Notify] store notification")
	}
	if err := s.publisher.PublishJSON(ctx, "notification."+string(kind), n); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Str("notification_id", n.ID).Msg("failed to publish notification event")
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, offset, limit int) (ListResponse, error) {
	offset, limit = utils.ClampPage(offset, limit)
	items, total, err := s.repo.List(ctx, userID, unreadOnly, offset, limit)
	if err != nil {
		return ListResponse{}, errors.Wrap(err, "[List]")
	}
	if items == nil {
		items = []*Notification{}
	}
	return ListResponse{Notifications: items, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read. Other users' notifications look missing.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return n, nil
}
