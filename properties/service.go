package properties

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/objectstore"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AllowedImageType reports whether uploads of contentType are accepted
func AllowedImageType(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}

type Service struct {
	repo          Repo
	store         objectstore.Store
	maxImageBytes int64
	nowTime       func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithMaxImageBytes caps the size of a single uploaded image
func WithMaxImageBytes(n int64) ServiceOption {
	return func(s *Service) {
		s.maxImageBytes = n
	}
}

func NewService(repo Repo, store objectstore.Store, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] properties repo is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] object store is required")
	}
	s := &Service{repo: repo, store: store, maxImageBytes: 5 << 20, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, actor *users.User, req CreateRequest) (*Property, error) {
	if !actor.HasRole(users.RoleOwner, users.RoleAdmin) {
		return nil, errors.Wrap(apperrors.ErrForbidden, "[Create] only owners can list properties")
	}
	now := s.nowTime().UTC()
	p := &Property{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ListingType: req.ListingType,
		Price:       req.Price,
		Currency:    normaliseCurrency(req.Currency),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		Country:     strings.TrimSpace(req.Country),
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		Status:      StatusAvailable,
		Images:      []Image{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "[Create] store property")
	}
	log.Info().Str("property_id", p.ID).Str("owner_id", p.OwnerID).Msg("property listed")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) (ListResponse, error) {
	if err := filter.Validate(); err != nil {
		return ListResponse{}, err
	}
	filter.Offset, filter.Limit = utils.ClampPage(filter.Offset, filter.Limit)
	if filter.Sort == "" {
		filter.Sort = SortNewest
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResponse{}, errors.Wrap(err, "[List]")
	}
	if items == nil {
		items = []*Property{}
	}
	return ListResponse{Properties: items, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// Update applies a partial update. Owners may only move a listing between available, pending
// and off_market; sold and rented are set by payments. The status is written as a compare-and-set
// against the status that was read, and the listing fields never touch it, so an edit racing a
// payment cannot put a sold listing back on the market.
func (s *Service) Update(ctx context.Context, actor *users.User, id string, req UpdateRequest) (*Property, error) {
	p, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	statusChange := req.Status != nil && *req.Status != p.Status
	if statusChange {
		if err := checkManualStatusChange(p.Status, *req.Status); err != nil {
			return nil, err
		}
	}

	utils.Apply(&p.Title, req.Title)
	utils.Apply(&p.Description, req.Description)
	utils.Apply(&p.ListingType, req.ListingType)
	utils.Apply(&p.Price, req.Price)
	utils.Apply(&p.Address, req.Address)
	utils.Apply(&p.City, req.City)
	utils.Apply(&p.State, req.State)
	utils.Apply(&p.Country, req.Country)
	utils.Apply(&p.Bedrooms, req.Bedrooms)
	utils.Apply(&p.Bathrooms, req.Bathrooms)
	utils.Apply(&p.AreaSqm, req.AreaSqm)
	if req.Currency != nil {
		p.Currency = normaliseCurrency(*req.Currency)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.City = strings.TrimSpace(p.City)

	if err := p.validate(); err != nil {
		return nil, err
	}
	now := s.nowTime().UTC()
	if statusChange {
		err := s.repo.SetStatus(ctx, id, p.Status, *req.Status, now)
		if apperrors.Is(err, apperrors.ErrPropertyUnavailable) {
			return nil, errors.Wrap(apperrors.ErrConflict, "[Update] status changed while editing")
		}
		if err != nil {
			return nil, errors.Wrap(err, "[Update] set status")
		}
	}
	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "[Update] store property")
	}
	return s.repo.Get(ctx, id)
}

func checkManualStatusChange(from, to Status) error {
	if !to.Valid() {
		return apperrors.Validationf("unknown status %q", to)
	}
	if to == StatusSold || to == StatusRented {
		return apperrors.Validationf("status %s is set by payments", to)
	}
	if from == StatusSold {
		return errors.Wrap(apperrors.ErrConflict, "sold properties cannot change status")
	}
	return nil
}

// Delete removes a listing and its images. Owners cannot delete sold listings.
func (s *Service) Delete(ctx context.Context, actor *users.User, id string) error {
	p, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if p.Status == StatusSold && !actor.IsAdmin() {
		return errors.Wrap(apperrors.ErrConflict, "[Delete] sold properties cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "[Delete] remove property")
	}
	for _, img := range p.Images {
		if err := s.store.Delete(ctx, img.Key); err != nil {
			log.Warn().Err(err).Str("key", img.Key).Msg("failed to delete property image")
		}
	}
	return nil
}

// AddImage uploads an image for one of the actor's listings
func (s *Service) AddImage(ctx context.Context, actor *users.User, id, filename, contentType string, r io.Reader) (*Image, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor.ID {
		return nil, errors.Wrap(apperrors.ErrForbidden, "[AddImage] not the owner")
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperrors.Validationf("unsupported image type %q", contentType)
	}
	if len(p.Images) >= MaxImagesPerProperty {
		return nil, ErrTooManyImages
	}

	imageID := uuid.NewString()
	key := fmt.Sprintf("properties/%s/%s%s", p.ID, imageID, ext)
	obj, err := s.store.Put(ctx, key, contentType, &limitedReader{r: r, remaining: s.maxImageBytes})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[AddImage] upload")
	}

	img := Image{ID: imageID, Key: obj.Key, URL: obj.URL, CreatedAt: s.nowTime().UTC()}
	if err := s.repo.AddImage(ctx, p.ID, img, MaxImagesPerProperty); err != nil {
		_ = s.store.Delete(ctx, obj.Key)
		if apperrors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[AddImage] store image")
	}
	log.Info().Str("property_id", p.ID).Str("key", obj.Key).Str("filename", filename).Int64("size", obj.Size).Msg("property image uploaded")
	return &img, nil
}

func (s *Service) RemoveImage(ctx context.Context, actor *users.User, id, imageID string) error {
	p, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	var key string
	for _, img := range p.Images {
		if img.ID == imageID {
			key = img.Key
		}
	}
	if key == "" {
		return errors.Wrap(apperrors.ErrNotFound, "[RemoveImage] image")
	}
	if err := s.repo.RemoveImage(ctx, id, imageID); err != nil {
		return errors.Wrap(err, "[RemoveImage]")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete property image")
	}
	return nil
}

// SetStatus changes the status without permission checks
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	return s.TransitionStatus(ctx, id, "", status)
}

// TransitionStatus moves a listing from one status to another, failing with
// ErrPropertyUnavailable if it is no longer in the from status. Payments call it
// inside their transaction.
func (s *Service) TransitionStatus(ctx context.Context, id string, from, to Status) error {
	if !to.Valid() {
		return apperrors.Validationf("unknown status %q", to)
	}
	return s.repo.SetStatus(ctx, id, from, to, s.nowTime().UTC())
}

// manageable loads a property the actor may change: its owner or an admin
func (s *Service) manageable(ctx context.Context, actor *users.User, id string) (*Property, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return p, nil
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// one byte past the limit tells a full image from an oversized one
		var extra [1]byte
		if n, _ := l.r.Read(extra[:]); n > 0 {
			return 0, apperrors.Validationf("image exceeds the upload limit")
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
