package reviews

import "context"

// Repo persists reviews. Create fails with errors.ErrConflict when the author already
// reviewed the property.
type Repo interface {
	Create(ctx context.Context, r *Review) error
	Update(ctx context.Context, r *Review) error
	Get(ctx context.Context, id string) (*Review, error)
	Delete(ctx context.Context, id string) error
	ListForProperty(ctx context.Context, propertyID string, offset, limit int) ([]*Review, int, error)
	RatingStats(ctx context.Context, propertyID string) (count int, sum int, err error)
}
