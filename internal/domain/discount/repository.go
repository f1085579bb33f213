package discount

import (
	"context"
)

// Repository defines the operations the reminder needs on discount records
// and their key/value annotations.
type Repository interface {
	ListActive(ctx context.Context) ([]*Discount, error)
	GetByID(ctx context.Context, id int64) (*Discount, error)
	// GetMeta returns the annotation value, or an error wrapping the store's
	// not-found sentinel when the key was never written.
	GetMeta(ctx context.Context, discountID int64, key string) (string, error)
	SetMeta(ctx context.Context, discountID int64, key, value string) error
	DeleteMeta(ctx context.Context, discountID int64, key string) error
}
