package complaints

import "context"

// Repo persists complaints, newest first. Get returns errors.ErrNotFound when absent.
type Repo interface {
	Create(ctx context.Context, c *Complaint) error
	Update(ctx context.Context, c *Complaint) error
	Get(ctx context.Context, id string) (*Complaint, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*Complaint, int, error)
}
