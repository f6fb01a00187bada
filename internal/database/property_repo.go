package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/properties"
)

type propertyRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	OwnerID     string `gorm:"size:36;index;not null"`
	Title       string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	ListingType string `gorm:"size:8;index;not null"`
	Price       int64  `gorm:"index;not null"`
	Currency    string `gorm:"size:3;not null"`
	Address     string
	City        string `gorm:"size:120;index"`
	State       string `gorm:"size:120"`
	Country     string `gorm:"size:120"`
	Bedrooms    int
	Bathrooms   int
	AreaSqm     float64
	Status      string                `gorm:"size:16;index;not null"`
	Images      []propertyImageRecord `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"index"`
	UpdatedAt   time.Time
}

func (propertyRecord) TableName() string { return "properties" }

type propertyImageRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	PropertyID string `gorm:"size:36;index;not null"`
	Key        string `gorm:"not null"`
	URL        string `gorm:"not null"`
	CreatedAt  time.Time
}

func (propertyImageRecord) TableName() string { return "property_images" }

func toPropertyRecord(p *properties.Property) *propertyRecord {
	return &propertyRecord{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		ListingType: string(p.ListingType),
		Price:       p.Price,
		Currency:    p.Currency,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		AreaSqm:     p.AreaSqm,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r *propertyRecord) toProperty() *properties.Property {
	images := make([]properties.Image, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, properties.Image{ID: img.ID, Key: img.Key, URL: img.URL, CreatedAt: img.CreatedAt.UTC()})
	}
	return &properties.Property{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		ListingType: properties.ListingType(r.ListingType),
		Price:       r.Price,
		Currency:    r.Currency,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		Country:     r.Country,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		AreaSqm:     r.AreaSqm,
		Status:      properties.Status(r.Status),
		Images:      images,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// PropertyRepo stores listings in the properties table and their images in property_images
type PropertyRepo struct {
	db *gorm.DB
}

var _ properties.Repo = (*PropertyRepo)(nil)

func NewPropertyRepo(db *gorm.DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

func (r *PropertyRepo) Create(ctx context.Context, p *properties.Property) error {
	rec := toPropertyRecord(p)
	if err := conn(ctx, r.db).Omit("Images").Create(rec).Error; err != nil {
		return translate(err, apperrors.ErrNotFound)
	}
	return nil
}

// Update leaves status to SetStatus so an edit cannot overwrite a status a payment just set
func (r *PropertyRepo) Update(ctx context.Context, p *properties.Property) error {
	res := conn(ctx, r.db).Model(&propertyRecord{ID: p.ID}).
		Select("title", "description", "listing_type", "price", "currency", "address",
			"city", "state", "country", "bedrooms", "bathrooms", "area_sqm", "updated_at").
		Updates(toPropertyRecord(p))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PropertyRepo) Get(ctx context.Context, id string) (*properties.Property, error) {
	var rec propertyRecord
	err := conn(ctx, r.db).Preload("Images", orderImages).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrNotFound)
	}
	return rec.toProperty(), nil
}

func (r *PropertyRepo) Delete(ctx context.Context, id string) error {
	return conn(ctx, r.db).Transaction(func(db *gorm.DB) error {
		if err := db.Delete(&propertyImageRecord{}, "property_id = ?", id).Error; err != nil {
			return err
		}
		res := db.Delete(&propertyRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

func (r *PropertyRepo) List(ctx context.Context, filter properties.Filter) ([]*properties.Property, int, error) {
	q := conn(ctx, r.db).Model(&propertyRecord{})
	if filter.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	}
	if filter.ListingType != "" {
		q = q.Where("listing_type = ?", string(filter.ListingType))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.MinPrice > 0 {
		q = q.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		q = q.Where("price <= ?", filter.MaxPrice)
	}
	if filter.MinBedrooms > 0 {
		q = q.Where("bedrooms >= ?", filter.MinBedrooms)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case properties.SortPriceAsc:
		q = q.Order("price ASC")
	case properties.SortPriceDesc:
		q = q.Order("price DESC")
	}
	q = q.Order("created_at DESC").Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []propertyRecord
	if err := q.Offset(filter.Offset).Preload("Images", orderImages).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	list := make([]*properties.Property, 0, len(recs))
	for i := range recs {
		list = append(list, recs[i].toProperty())
	}
	return list, int(total), nil
}

// AddImage locks the property row while counting so concurrent uploads cannot pass limit
func (r *PropertyRepo) AddImage(ctx context.Context, propertyID string, image properties.Image, limit int) error {
	return conn(ctx, r.db).Transaction(func(db *gorm.DB) error {
		var owner propertyRecord
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", propertyID).Take(&owner).Error
		if err != nil {
			return translate(err, apperrors.ErrNotFound)
		}
		var count int64
		if err := db.Model(&propertyImageRecord{}).Where("property_id = ?", propertyID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return properties.ErrTooManyImages
		}
		return db.Create(&propertyImageRecord{
			ID:         image.ID,
			PropertyID: propertyID,
			Key:        image.Key,
			URL:        image.URL,
			CreatedAt:  image.CreatedAt,
		}).Error
	})
}

func (r *PropertyRepo) RemoveImage(ctx context.Context, propertyID, imageID string) error {
	res := conn(ctx, r.db).Delete(&propertyImageRecord{}, "id = ? AND property_id = ?", imageID, propertyID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetStatus with a non-empty from only matches a row still in that status, so two
// buyers racing for the same listing cannot both win.
func (r *PropertyRepo) SetStatus(ctx context.Context, id string, from, to properties.Status, at time.Time) error {
	db := conn(ctx, r.db)
	q := db.Model(&propertyRecord{}).Where("id = ?", id)
	if from != "" {
		q = q.Where("status = ?", string(from))
	}
	res := q.Updates(map[string]interface{}{"status": string(to), "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if err := r.exists(db, id); err != nil {
		return err
	}
	return apperrors.ErrPropertyUnavailable
}

func (r *PropertyRepo) exists(db *gorm.DB, id string) error {
	var count int64
	if err := db.Model(&propertyRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
