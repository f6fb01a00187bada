package notificationrepofake

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/notifications"
)

var _ notifications.Repo = (*FakeNotificationRepo)(nil)

type FakeNotificationRepo struct {
	items map[string]*notifications.Notification
	lock  sync.RWMutex
}

func NewFakeNotificationRepo() *FakeNotificationRepo {
	return &FakeNotificationRepo{items: make(map[string]*notifications.Notification)}
}

func (r *FakeNotificationRepo) Create(_ context.Context, n *notifications.Notification) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	c := *n
	r.items[c.ID] = &c
	return nil
}

func (r *FakeNotificationRepo) Get(_ context.Context, id string) (*notifications.Notification, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (r *FakeNotificationRepo) List(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]*notifications.Notification, int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var matched []*notifications.Notification
	for _, n := range r.items {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		c := *n
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return utils.Page(matched, offset, limit), len(matched), nil
}

func (r *FakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *FakeNotificationRepo) MarkRead(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	n, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	n.Read = true
	return nil
}

func (r *FakeNotificationRepo) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (r *FakeNotificationRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
