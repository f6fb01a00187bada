package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/notifications"
)

type notificationRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index:idx_notification_user_read"`
	Kind      string    `gorm:"size:32;not null"`
	Title     string    `gorm:"size:200;not null"`
	Message   string    `gorm:"type:text"`
	Read      bool      `gorm:"column:is_read;not null;default:false;index:idx_notification_user_read"`
	CreatedAt time.Time `gorm:"index"`
}

func (notificationRecord) TableName() string { return "notifications" }

func (r *notificationRecord) toNotification() *notifications.Notification {
	return &notifications.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      notifications.Kind(r.Kind),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type NotificationRepo struct {
	db *gorm.DB
}

var _ notifications.Repo = (*NotificationRepo)(nil)

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *notifications.Notification) error {
	rec := &notificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	return translate(conn(ctx, r.db).Create(rec).Error, apperrors.ErrNotFound)
}

func (r *NotificationRepo) Get(ctx context.Context, id string) (*notifications.Notification, error) {
	var rec notificationRecord
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toNotification(), nil
}

func (r *NotificationRepo) List(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*notifications.Notification, int, error) {
	q := conn(ctx, r.db).Model(&notificationRecord{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []notificationRecord
	if err := q.Order("created_at DESC").Order("id ASC").Offset(offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	list := make([]*notifications.Notification, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toNotification())
	}
	return list, int(total), nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int64
	err := conn(ctx, r.db).Model(&notificationRecord{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return int(count), err
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Model(&notificationRecord{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res := conn(ctx, r.db).Model(&notificationRecord{}).Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	return int(res.RowsAffected), res.Error
}

func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&notificationRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
