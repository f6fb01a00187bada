package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/reviews"
)

type reviewRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	PropertyID string `gorm:"size:36;not null;uniqueIndex:idx_review_property_author"`
	AuthorID   string `gorm:"size:36;not null;uniqueIndex:idx_review_property_author"`
	Rating     int    `gorm:"not null"`
	Comment    string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (reviewRecord) TableName() string { return "reviews" }

func toReviewRecord(rv *reviews.Review) *reviewRecord {
	return &reviewRecord{
		ID:         rv.ID,
		PropertyID: rv.PropertyID,
		AuthorID:   rv.AuthorID,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
		CreatedAt:  rv.CreatedAt,
		UpdatedAt:  rv.UpdatedAt,
	}
}

func (r *reviewRecord) toReview() *reviews.Review {
	return &reviews.Review{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		AuthorID:   r.AuthorID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type ReviewRepo struct {
	db *gorm.DB
}

var _ reviews.Repo = (*ReviewRepo)(nil)

func NewReviewRepo(db *gorm.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Create(ctx context.Context, rv *reviews.Review) error {
	return translate(conn(ctx, r.db).Create(toReviewRecord(rv)).Error, apperrors.ErrNotFound)
}

func (r *ReviewRepo) Update(ctx context.Context, rv *reviews.Review) error {
	res := conn(ctx, r.db).Model(&reviewRecord{ID: rv.ID}).
		Select("rating", "comment", "updated_at").
		Updates(toReviewRecord(rv))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) Get(ctx context.Context, id string) (*reviews.Review, error) {
	var rec reviewRecord
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toReview(), nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&reviewRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) ListForProperty(ctx context.Context, propertyID string, offset, limit int) ([]*reviews.Review, int, error) {
	q := conn(ctx, r.db).Model(&reviewRecord{}).Where("property_id = ?", propertyID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []reviewRecord
	if err := q.Order("created_at DESC").Order("id ASC").Offset(offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	list := make([]*reviews.Review, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toReview())
	}
	return list, int(total), nil
}

func (r *ReviewRepo) RatingStats(ctx context.Context, propertyID string) (int, int, error) {
	var stats struct {
		Count int
		Sum   int
	}
	err := conn(ctx, r.db).Model(&reviewRecord{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("property_id = ?", propertyID).
		Scan(&stats).Error
	if err != nil {
		return 0, 0, err
	}
	return stats.Count, stats.Sum, nil
}
