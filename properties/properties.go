package properties

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
)

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusRented    Status = "rented"
	StatusOffMarket Status = "off_market"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

const (
	DefaultCurrency      = "USD"
	MaxImagesPerProperty = 10
	maxDescriptionLength = 5000
)

var ErrTooManyImages = apperrors.Validationf("a property can have at most %d images", MaxImagesPerProperty)

// Property is a listing. Price is in minor units of Currency (monthly for rentals).
type Property struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ListingType ListingType `json:"listing_type"`
	Price       int64       `json:"price"`
	Currency    string      `json:"currency"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state,omitempty"`
	Country     string      `json:"country,omitempty"`
	Bedrooms    int         `json:"bedrooms"`
	Bathrooms   int         `json:"bathrooms"`
	AreaSqm     float64     `json:"area_sqm,omitempty"`
	Status      Status      `json:"status"`
	Images      []Image     `json:"images"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Image struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows listings. Zero values match everything.
type Filter struct {
	City        string
	ListingType ListingType
	Status      Status
	OwnerID     string
	MinPrice    int64
	MaxPrice    int64
	MinBedrooms int
	Query       string
	Offset      int
	Limit       int
	Sort        SortOrder
}

type ListResponse struct {
	Properties []*Property `json:"properties"`
	Total      int         `json:"total"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
}

type CreateRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ListingType ListingType `json:"listing_type"`
	Price       int64       `json:"price"`
	Currency    string      `json:"currency"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Country     string      `json:"country"`
	Bedrooms    int         `json:"bedrooms"`
	Bathrooms   int         `json:"bathrooms"`
	AreaSqm     float64     `json:"area_sqm"`
}

// UpdateRequest is a partial update; nil fields are left alone
type UpdateRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	ListingType *ListingType `json:"listing_type"`
	Price       *int64       `json:"price"`
	Currency    *string      `json:"currency"`
	Address     *string      `json:"address"`
	City        *string      `json:"city"`
	State       *string      `json:"state"`
	Country     *string      `json:"country"`
	Bedrooms    *int         `json:"bedrooms"`
	Bathrooms   *int         `json:"bathrooms"`
	AreaSqm     *float64     `json:"area_sqm"`
	Status      *Status      `json:"status"`
}

func (lt ListingType) Valid() bool {
	return lt == ListingSale || lt == ListingRent
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusSold, StatusRented, StatusOffMarket:
		return true
	}
	return false
}

func (s SortOrder) Valid() bool {
	switch s {
	case "", SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// Matches reports whether p passes every set field of the filter
func (f Filter) Matches(p *Property) bool {
	if f.City != "" && !strings.EqualFold(f.City, p.City) {
		return false
	}
	if f.ListingType != "" && f.ListingType != p.ListingType {
		return false
	}
	if f.Status != "" && f.Status != p.Status {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != p.OwnerID {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

func (f Filter) Validate() error {
	if f.ListingType != "" && !f.ListingType.Valid() {
		return apperrors.Validationf("unknown listing type %q", f.ListingType)
	}
	if f.Status != "" && !f.Status.Valid() {
		return apperrors.Validationf("unknown status %q", f.Status)
	}
	if !f.Sort.Valid() {
		return apperrors.Validationf("unknown sort %q", f.Sort)
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 || (f.MaxPrice > 0 && f.MinPrice > f.MaxPrice) {
		return apperrors.Validationf("invalid price range")
	}
	return nil
}

// validate checks the listing fields shared by create and update
func (p *Property) validate() error {
	if n := utf8.RuneCountInString(p.Title); n < 3 || n > 200 {
		return apperrors.Validationf("title must be between 3 and 200 characters")
	}
	if utf8.RuneCountInString(p.Description) > maxDescriptionLength {
		return apperrors.Validationf("description must be at most %d characters", maxDescriptionLength)
	}
	if !p.ListingType.Valid() {
		return apperrors.Validationf("listing_type must be sale or rent")
	}
	if p.Price <= 0 {
		return apperrors.Validationf("price must be positive")
	}
	if !validCurrency(p.Currency) {
		return apperrors.Validationf("currency must be a 3 letter code")
	}
	if strings.TrimSpace(p.City) == "" {
		return apperrors.Validationf("city is required")
	}
	if p.Bedrooms < 0 || p.Bathrooms < 0 || p.AreaSqm < 0 {
		return apperrors.Validationf("bedrooms, bathrooms and area cannot be negative")
	}
	return nil
}

func normaliseCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
