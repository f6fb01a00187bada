package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jrsteele09/go-property-market/complaints"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
)

type complaintRecord struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ComplainantID string    `gorm:"size:36;not null;index"`
	PropertyID    string    `gorm:"size:36;index"`
	OwnerID       string    `gorm:"size:36;index"`
	Subject       string    `gorm:"size:200;not null"`
	Description   string    `gorm:"type:text"`
	Status        string    `gorm:"size:16;not null;index"`
	Resolution    string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (complaintRecord) TableName() string { return "complaints" }

func toComplaintRecord(c *complaints.Complaint) *complaintRecord {
	return &complaintRecord{
		ID:            c.ID,
		ComplainantID: c.ComplainantID,
		PropertyID:    c.PropertyID,
		OwnerID:       c.OwnerID,
		Subject:       c.Subject,
		Description:   c.Description,
		Status:        string(c.Status),
		Resolution:    c.Resolution,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (r *complaintRecord) toComplaint() *complaints.Complaint {
	return &complaints.Complaint{
		ID:            r.ID,
		ComplainantID: r.ComplainantID,
		PropertyID:    r.PropertyID,
		OwnerID:       r.OwnerID,
		Subject:       r.Subject,
		Description:   r.Description,
		Status:        complaints.Status(r.Status),
		Resolution:    r.Resolution,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type ComplaintRepo struct {
	db *gorm.DB
}

var _ complaints.Repo = (*ComplaintRepo)(nil)

func NewComplaintRepo(db *gorm.DB) *ComplaintRepo {
	return &ComplaintRepo{db: db}
}

func (r *ComplaintRepo) Create(ctx context.Context, c *complaints.Complaint) error {
	return translate(conn(ctx, r.db).Create(toComplaintRecord(c)).Error, apperrors.ErrNotFound)
}

func (r *ComplaintRepo) Update(ctx context.Context, c *complaints.Complaint) error {
	res := conn(ctx, r.db).Model(&complaintRecord{ID: c.ID}).
		Select("subject", "description", "status", "resolution", "updated_at").
		Updates(toComplaintRecord(c))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ComplaintRepo) Get(ctx context.Context, id string) (*complaints.Complaint, error) {
	var rec complaintRecord
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toComplaint(), nil
}

func (r *ComplaintRepo) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&complaintRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ComplaintRepo) List(ctx context.Context, filter complaints.ListFilter) ([]*complaints.Complaint, int, error) {
	q := conn(ctx, r.db).Model(&complaintRecord{})
	if filter.ComplainantID != "" {
		q = q.Where("complainant_id = ?", filter.ComplainantID)
	}
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var recs []complaintRecord
	if err := q.Order("created_at DESC").Order("id ASC").Offset(filter.Offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	list := make([]*complaints.Complaint, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toComplaint())
	}
	return list, int(total), nil
}
