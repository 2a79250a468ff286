// Package events holds the catalog change notifications published after a commit.
package events

import (
	"encoding/json"
	"time"
)

const (
	// CatalogStream captures every catalog subject.
	CatalogStream = "CATALOG"

	ProductCommittedSubject = "catalog.product.committed"
	ProductDeletedSubject   = "catalog.product.deleted"
)

// CatalogSubjects lists the subjects bound to CatalogStream.
var CatalogSubjects = []string{"catalog.product.>"}

// CommitKind tells subscribers whether a committed product is new.
type CommitKind string

const (
	CommitCreated CommitKind = "created"
	CommitUpdated CommitKind = "updated"
)

// ProductCommittedEvent is published after a product record has been persisted locally.
type ProductCommittedEvent struct {
	ProductID   string     `json:"product_id"`
	Kind        CommitKind `json:"kind"`
	ImageURL    string     `json:"image_url"`
	CommittedAt time.Time  `json:"committed_at"`
}

func (e ProductCommittedEvent) Subject() string {
	return ProductCommittedSubject
}

func (e ProductCommittedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// ProductDeletedEvent is published after a product record has been removed locally.
type ProductDeletedEvent struct {
	ProductID string    `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (e ProductDeletedEvent) Subject() string {
	return ProductDeletedSubject
}

func (e ProductDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
