package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxCommentLength = 2000

type Review struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	AuthorID   string    `json:"author_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Summary struct {
	PropertyID string  `json:"property_id"`
	Count      int     `json:"count"`
	Average    float64 `json:"average"`
}

type ListResponse struct {
	Reviews []*Review `json:"reviews"`
	Total   int       `json:"total"`
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
	Summary Summary   `json:"summary"`
}

type CreateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type UpdateRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type Service struct {
	repo       Repo
	properties properties.Repo
	notifier   notifications.Notifier
	nowTime    func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, propertyRepo properties.Repo, notifier notifications.Notifier, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, properties: propertyRepo, notifier: notifier, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validate(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperrors.Validationf("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return apperrors.Validationf("comment must be at most %d characters", maxCommentLength)
	}
	return nil
}

// Create adds the author's review of a property. Owners cannot review their own listing
// and each author reviews a property once.
func (s *Service) Create(ctx context.Context, author *users.User, propertyID string, req CreateRequest) (*Review, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validate(req.Rating, req.Comment); err != nil {
		return nil, err
	}
	p, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return nil, errors.Wrap(err, "[Create] property")
	}
	if p.OwnerID == author.ID {
		return nil, errors.Wrap(apperrors.ErrForbidden, "owners cannot review their own property")
	}

	now := s.nowTime().UTC()
	r := &Review{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		AuthorID:   author.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, errors.Wrap(err, "property already reviewed")
		}
		return nil, errors.Wrap(err, "[Create] store review")
	}

	if err := s.notifier.Notify(ctx, p.OwnerID, notifications.KindReviewCreated, "New review",
		fmt.Sprintf("%s rated %q %d/5.", author.DisplayName(), p.Title, r.Rating)); err != nil {
		log.Error().Err(err).Str("review_id", r.ID).Msg("failed to notify owner of review")
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, author *users.User, id string, req UpdateRequest) (*Review, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.AuthorID != author.ID {
		return nil, apperrors.ErrForbidden
	}
	utils.Apply(&r.Rating, req.Rating)
	utils.Apply(&r.Comment, req.Comment)
	r.Comment = strings.TrimSpace(r.Comment)
	if err := validate(r.Rating, r.Comment); err != nil {
		return nil, err
	}
	r.UpdatedAt = s.nowTime().UTC()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, errors.Wrap(err, "[Update]")
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor *users.User, id string) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperrors.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// ListForProperty returns a page of reviews, newest first, with the property's rating summary
func (s *Service) ListForProperty(ctx context.Context, propertyID string, offset, limit int) (ListResponse, error) {
	if _, err := s.properties.Get(ctx, propertyID); err != nil {
		return ListResponse{}, err
	}
	offset, limit = utils.ClampPage(offset, limit)
	items, total, err := s.repo.ListForProperty(ctx, propertyID, offset, limit)
	if err != nil {
		return ListResponse{}, errors.Wrap(err, "[ListForProperty]")
	}
	if items == nil {
		items = []*Review{}
	}
	summary, err := s.Summary(ctx, propertyID)
	if err != nil {
		return ListResponse{}, err
	}
	return ListResponse{Reviews: items, Total: total, Offset: offset, Limit: limit, Summary: summary}, nil
}

func (s *Service) Summary(ctx context.Context, propertyID string) (Summary, error) {
	count, sum, err := s.repo.RatingStats(ctx, propertyID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "[Summary]")
	}
	summary := Summary{PropertyID: propertyID, Count: count}
	if count > 0 {
		summary.Average = math.Round(float64(sum)/float64(count)*100) / 100
	}
	return summary, nil
}
