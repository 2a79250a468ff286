// Package store persists finalized catalog products in a namespaced key-value layer.
package store

import (
	"context"
)

// CatalogStore is the local catalog. Every operation is atomic for a single record;
// concurrent writers get last-writer-wins per key and nothing more.
type CatalogStore interface {
	// Put upserts the product under product_<id>, overwriting any previous record.
	// Returns ErrInvalidRecord if the product violates the persisted invariant.
	Put(ctx context.Context, product Product) error

	// Get returns the product stored under id.
	// Returns ErrProductNotFound if no record exists, or a StorageError if the record is corrupt.
	Get(ctx context.Context, id string) (*Product, error)

	// Scan returns one tagged Record per key in the catalog namespace, corrupt ones included.
	Scan(ctx context.Context) ([]Record, error)

	// ListAll returns the healthy products of the catalog namespace; corrupt records are omitted.
	ListAll(ctx context.Context) ([]Product, error)

	// Delete removes the record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
