package properties

import (
	"context"
	"time"
)

// Repo persists listings and their images. Get returns errors.ErrNotFound when absent,
// List applies Offset/Limit after filtering and sorting, and SetStatus with a non-empty from
// is a compare-and-set that fails with errors.ErrPropertyUnavailable when the status moved on.
// Update writes the descriptive fields only: never the owner, the status or the images.
// AddImage fails with ErrTooManyImages when the listing already holds limit images.
type Repo interface {
	Create(ctx context.Context, p *Property) error
	Update(ctx context.Context, p *Property) error
	Get(ctx context.Context, id string) (*Property, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]*Property, int, error)
	AddImage(ctx context.Context, propertyID string, image Image, limit int) error
	RemoveImage(ctx context.Context, propertyID, imageID string) error
	SetStatus(ctx context.Context, id string, from, to Status, at time.Time) error
}
