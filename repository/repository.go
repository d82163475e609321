package repository

import (
	"context"
)

// Repository is a document store keyed by document ID
type Repository interface {
	// GetByID returns the raw document (either *resty.Response or []byte), use MapToObject to decode it
	GetByID(ctx context.Context, id string) (interface{}, error)
	// Save creates a new doc or replaces an existing one
	Save(ctx context.Context, docID string, data interface{}) error
	Delete(ctx context.Context, id string) error
	GetDBName() string
}
