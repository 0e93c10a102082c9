package discovery

import "context"

// Repository defines persistence operations for completed discoveries.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	TotalUsage(ctx context.Context) (Usage, error)
}
