package complaints

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Scope selects which complaints List returns
type Scope string

const (
	ScopeMine     Scope = "mine"     // filed by the actor
	ScopeReceived Scope = "received" // about the actor's properties
	ScopeAll      Scope = "all"      // admins only
)

const (
	maxDescriptionLength = 5000
	maxResolutionLength  = 2000
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
}

// CanTransition reports whether a complaint may move from one status to another
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Complaint struct {
	ID            string    `json:"id"`
	ComplainantID string    `json:"complainant_id"`
	PropertyID    string    `json:"property_id,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"` // owner of PropertyID when the complaint was filed
	Subject       string    `json:"subject"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	Resolution    string    `json:"resolution,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilter is what the repository understands; empty fields match everything
type ListFilter struct {
	ComplainantID string
	OwnerID       string
	Status        Status
	Offset        int
	Limit         int
}

type ListResponse struct {
	Complaints []*Complaint `json:"complaints"`
	Total      int          `json:"total"`
	Offset     int          `json:"offset"`
	Limit      int          `json:"limit"`
}

type FileRequest struct {
	PropertyID  string `json:"property_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type Service struct {
	repo       Repo
	properties properties.Repo
	notifier   notifications.Notifier
	nowTime    func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, propertyRepo properties.Repo, notifier notifications.Notifier, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, properties: propertyRepo, notifier: notifier, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) File(ctx context.Context, complainant *users.User, req FileRequest) (*Complaint, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Description = strings.TrimSpace(req.Description)
	if n := utf8.RuneCountInString(req.Subject); n < 3 || n > 200 {
		return nil, apperrors.Validationf("subject must be between 3 and 200 characters")
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return nil, apperrors.Validationf("description must be at most %d characters", maxDescriptionLength)
	}

	now := s.nowTime().UTC()
	c := &Complaint{
		ID:            uuid.NewString(),
		ComplainantID: complainant.ID,
		Subject:       req.Subject,
		Description:   req.Description,
		Status:        StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	var propertyTitle string
	if req.PropertyID != "" {
		p, err := s.properties.Get(ctx, req.PropertyID)
		if err != nil {
			return nil, errors.Wrap(err, "[File] property")
		}
		c.PropertyID = p.ID
		c.OwnerID = p.OwnerID
		propertyTitle = p.Title
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "[File] store complaint")
	}

	if c.OwnerID != "" && c.OwnerID != complainant.ID {
		s.notify(ctx, c.OwnerID, notifications.KindComplaintFiled, "Complaint received",
			fmt.Sprintf("A complaint was filed about %q: %s", propertyTitle, c.Subject), c.ID)
	}
	return c, nil
}

// Get returns a complaint to its complainant, the property owner or an admin
func (s *Service) Get(ctx context.Context, actor *users.User, id string) (*Complaint, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ComplainantID != actor.ID && c.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, actor *users.User, scope Scope, status Status, offset, limit int) (ListResponse, error) {
	filter := ListFilter{Status: status}
	switch scope {
	case "", ScopeMine:
		filter.ComplainantID = actor.ID
	case ScopeReceived:
		filter.OwnerID = actor.ID
	case ScopeAll:
		if !actor.IsAdmin() {
			return ListResponse{}, apperrors.ErrForbidden
		}
	default:
		return ListResponse{}, apperrors.Validationf("scope must be mine, received or all")
	}
	if status != "" && !validStatus(status) {
		return ListResponse{}, apperrors.Validationf("unknown status %q", status)
	}
	filter.Offset, filter.Limit = utils.ClampPage(offset, limit)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResponse{}, errors.Wrap(err, "[List]")
	}
	if items == nil {
		items = []*Complaint{}
	}
	return ListResponse{Complaints: items, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// UpdateStatus moves a complaint along its lifecycle. Admins and the property owner may do this.
func (s *Service) UpdateStatus(ctx context.Context, actor *users.User, id string, status Status, resolution string) (*Complaint, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (c.OwnerID == "" || c.OwnerID != actor.ID) {
		return nil, apperrors.ErrForbidden
	}
	if !validStatus(status) {
		return nil, apperrors.Validationf("unknown status %q", status)
	}
	if !CanTransition(c.Status, status) {
		return nil, errors.Wrapf(apperrors.ErrConflict, "cannot move complaint from %s to %s", c.Status, status)
	}
	resolution = strings.TrimSpace(resolution)
	if utf8.RuneCountInString(resolution) > maxResolutionLength {
		return nil, apperrors.Validationf("resolution must be at most %d characters", maxResolutionLength)
	}

	c.Status = status
	if resolution != "" {
		c.Resolution = resolution
	}
	c.UpdatedAt = s.nowTime().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "[UpdateStatus]")
	}

	s.notify(ctx, c.ComplainantID, notifications.KindComplaintUpdated, "Complaint updated",
		fmt.Sprintf("Your complaint %q is now %s.", c.Subject, strings.ReplaceAll(string(c.Status), "_", " ")), c.ID)
	return c, nil
}

// Delete removes a complaint. Complainants may withdraw their own while it is open.
func (s *Service) Delete(ctx context.Context, actor *users.User, id string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if c.ComplainantID != actor.ID {
			return apperrors.ErrForbidden
		}
		if c.Status != StatusOpen {
			return errors.Wrap(apperrors.ErrConflict, "only open complaints can be withdrawn")
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) notify(ctx context.Context, userID string, kind notifications.Kind, title, message, complaintID string) {
	if err := s.notifier.Notify(ctx, userID, kind, title, message); err != nil {
		log.Error().Err(err).Str("complaint_id", complaintID).Msg("failed to send complaint notification")
	}
}

func validStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}
