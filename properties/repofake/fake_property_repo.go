package propertyrepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/properties"
)

var _ properties.Repo = (*FakePropertyRepo)(nil)

type FakePropertyRepo struct {
	properties map[string]*properties.Property
	lock       sync.RWMutex
}

func NewFakePropertyRepo() *FakePropertyRepo {
	return &FakePropertyRepo{properties: make(map[string]*properties.Property)}
}

func clone(p *properties.Property) *properties.Property {
	c := *p
	c.Images = append([]properties.Image{}, p.Images...)
	return &c
}

func (r *FakePropertyRepo) Create(_ context.Context, p *properties.Property) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, exists := r.properties[p.ID]; exists {
		return apperrors.ErrConflict
	}
	r.properties[p.ID] = clone(p)
	return nil
}

// Update replaces the descriptive fields; owner, status and images keep their stored values
func (r *FakePropertyRepo) Update(_ context.Context, p *properties.Property) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	existing, ok := r.properties[p.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	c := clone(p)
	c.OwnerID = existing.OwnerID
	c.Status = existing.Status
	c.Images = existing.Images
	c.CreatedAt = existing.CreatedAt
	r.properties[p.ID] = c
	return nil
}

func (r *FakePropertyRepo) Get(_ context.Context, id string) (*properties.Property, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	p, ok := r.properties[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(p), nil
}

func (r *FakePropertyRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.properties[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.properties, id)
	return nil
}

func (r *FakePropertyRepo) List(_ context.Context, filter properties.Filter) ([]*properties.Property, int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var matched []*properties.Property
	for _, p := range r.properties {
		if filter.Matches(p) {
			matched = append(matched, clone(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Sort {
		case properties.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case properties.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return utils.Page(matched, filter.Offset, filter.Limit), len(matched), nil
}

func (r *FakePropertyRepo) AddImage(_ context.Context, propertyID string, image properties.Image, limit int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	p, ok := r.properties[propertyID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if len(p.Images) >= limit {
		return properties.ErrTooManyImages
	}
	p.Images = append(p.Images, image)
	return nil
}

func (r *FakePropertyRepo) RemoveImage(_ context.Context, propertyID, imageID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	p, ok := r.properties[propertyID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for i, img := range p.Images {
		if img.ID == imageID {
			p.Images = append(p.Images[:i:i], p.Images[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *FakePropertyRepo) SetStatus(_ context.Context, id string, from, to properties.Status, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	p, ok := r.properties[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if from != "" && p.Status != from {
		return apperrors.ErrPropertyUnavailable
	}
	p.Status = to
	p.UpdatedAt = at
	return nil
}
