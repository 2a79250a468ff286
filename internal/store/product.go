package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/abgdnv/catalogsync/internal/media"
)

// KeyPrefix namespaces catalog records inside the key-value layer.
const KeyPrefix = "product_"

var ErrInvalidRecord = errors.New("record violates the catalog invariant")

// Product is the persisted catalog entry. ImageRef is always a resolved remote reference.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageRef    string  `json:"image"`
	Category    string  `json:"category"`
}

// Check reports the first violated invariant, wrapped in ErrInvalidRecord.
func (p Product) Check() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: empty title", ErrInvalidRecord)
	case strings.TrimSpace(p.Category) == "":
		return fmt.Errorf("%w: empty category", ErrInvalidRecord)
	case math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0:
		return fmt.Errorf("%w: price %v", ErrInvalidRecord, p.Price)
	case !media.IsRemoteRef(p.ImageRef):
		return fmt.Errorf("%w: image %q is not a remote reference", ErrInvalidRecord, p.ImageRef)
	}
	return nil
}

// Record is the tagged result of reading one stored key: either a Product or a corruption cause.
type Record struct {
	Key     string
	Product Product
	Corrupt error
}

// OK reports whether the record decoded into a valid Product.
func (r Record) OK() bool { return r.Corrupt == nil }

// Key returns the storage key of a product id.
func Key(id string) string {
	return KeyPrefix + id
}

// Healthy keeps the products of records that decoded cleanly, in order.
func Healthy(records []Record) []Product {
	products := make([]Product, 0, len(records))
	for _, r := range records {
		if r.OK() {
			products = append(products, r.Product)
		}
	}
	return products
}

func encode(p Product) ([]byte, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func decode(key string, raw []byte) Record {
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Record{Key: key, Corrupt: fmt.Errorf("decode: %w", err)}
	}
	if err := p.Check(); err != nil {
		return Record{Key: key, Corrupt: err}
	}
	if Key(p.ID) != key {
		return Record{Key: key, Corrupt: fmt.Errorf("%w: id %q does not match key", ErrInvalidRecord, p.ID)}
	}
	return Record{Key: key, Product: p}
}
