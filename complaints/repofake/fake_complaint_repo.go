package complaintrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-property-market/complaints"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
)

var _ complaints.Repo = (*FakeComplaintRepo)(nil)

type FakeComplaintRepo struct {
	complaints map[string]*complaints.Complaint
	lock       sync.RWMutex
}

func NewFakeComplaintRepo() *FakeComplaintRepo {
	return &FakeComplaintRepo{complaints: make(map[string]*complaints.Complaint)}
}

func (r *FakeComplaintRepo) Create(_ context.Context, c *complaints.Complaint) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *c
	r.complaints[cp.ID] = &cp
	return nil
}

func (r *FakeComplaintRepo) Update(_ context.Context, c *complaints.Complaint) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.complaints[c.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *c
	r.complaints[cp.ID] = &cp
	return nil
}

func (r *FakeComplaintRepo) Get(_ context.Context, id string) (*complaints.Complaint, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.complaints[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *FakeComplaintRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.complaints[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.complaints, id)
	return nil
}

func (r *FakeComplaintRepo) List(_ context.Context, filter complaints.ListFilter) ([]*complaints.Complaint, int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var matched []*complaints.Complaint
	for _, c := range r.complaints {
		if filter.ComplainantID != "" && c.ComplainantID != filter.ComplainantID {
			continue
		}
		if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return utils.Page(matched, filter.Offset, filter.Limit), len(matched), nil
}
