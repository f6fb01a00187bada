package reviewrepofake

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/reviews"
)

var _ reviews.Repo = (*FakeReviewRepo)(nil)

type FakeReviewRepo struct {
	reviews map[string]*reviews.Review
	lock    sync.RWMutex
}

func NewFakeReviewRepo() *FakeReviewRepo {
	return &FakeReviewRepo{reviews: make(map[string]*reviews.Review)}
}

func (rr *FakeReviewRepo) Create(_ context.Context, r *reviews.Review) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()
	for _, existing := range rr.reviews {
		if existing.PropertyID == r.PropertyID && existing.AuthorID == r.AuthorID {
			return apperrors.ErrConflict
		}
	}
	c := *r
	rr.reviews[c.ID] = &c
	return nil
}

func (rr *FakeReviewRepo) Update(_ context.Context, r *reviews.Review) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()
	if _, ok := rr.reviews[r.ID]; !ok {
		return apperrors.ErrNotFound
	}
	c := *r
	rr.reviews[c.ID] = &c
	return nil
}

func (rr *FakeReviewRepo) Get(_ context.Context, id string) (*reviews.Review, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()
	r, ok := rr.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (rr *FakeReviewRepo) Delete(_ context.Context, id string) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()
	if _, ok := rr.reviews[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(rr.reviews, id)
	return nil
}

func (rr *FakeReviewRepo) ListForProperty(_ context.Context, propertyID string, offset, limit int) ([]*reviews.Review, int, error) {
	matched := rr.forProperty(propertyID)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return utils.Page(matched, offset, limit), len(matched), nil
}

func (rr *FakeReviewRepo) RatingStats(_ context.Context, propertyID string) (int, int, error) {
	matched := rr.forProperty(propertyID)
	sum := 0
	for _, r := range matched {
		sum += r.Rating
	}
	return len(matched), sum, nil
}

func (rr *FakeReviewRepo) forProperty(propertyID string) []*reviews.Review {
	rr.lock.RLock()
	defer rr.lock.RUnlock()
	var out []*reviews.Review
	for _, r := range rr.reviews {
		if r.PropertyID == propertyID {
			c := *r
			out = append(out, &c)
		}
	}
	return out
}
