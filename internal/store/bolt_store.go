package store

import (
	"bytes"
	"context"
	"fmt"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	bolt "go.etcd.io/bbolt"
)

var catalogBucket = []byte("catalog")

// BoltStore keeps the catalog in a single bbolt bucket.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates the catalog bucket if it does not exist yet.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(catalogBucket)
		return err
	})
	if err != nil {
		return nil, &catalogerrors.StorageError{Op: "init", Err: err}
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(ctx context.Context, product Product) error {
	key := Key(product.ID)
	data, err := encode(product)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &catalogerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogBucket).Put([]byte(key), data)
	})
	if err != nil {
		return &catalogerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *BoltStore) Get(ctx context.Context, id string) (*Product, error) {
	key := Key(id)
	if err := ctx.Err(); err != nil {
		return nil, &catalogerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(catalogBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		r := decode(key, raw)
		rec = &r
		return nil
	})
	if err != nil {
		return nil, &catalogerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	if rec == nil {
		return nil, catalogerrors.ErrProductNotFound
	}
	if !rec.OK() {
		return nil, &catalogerrors.StorageError{Op: "get", Key: key, Err: rec.Corrupt}
	}
	return &rec.Product, nil
}

func (s *BoltStore) Scan(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &catalogerrors.StorageError{Op: "scan", Err: err}
	}
	prefix := []byte(KeyPrefix)
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(catalogBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			records = append(records, decode(string(k), v))
		}
		return nil
	})
	if err != nil {
		return nil, &catalogerrors.StorageError{Op: "scan", Err: err}
	}
	return records, nil
}

func (s *BoltStore) ListAll(ctx context.Context) ([]Product, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return Healthy(records), nil
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	key := Key(id)
	if err := ctx.Err(); err != nil {
		return &catalogerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogBucket).Delete([]byte(key))
	})
	if err != nil {
		return &catalogerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// putRaw writes bytes under a key verbatim. Tests use it to plant corrupt records.
func (s *BoltStore) putRaw(key string, raw []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(catalogBucket).Put([]byte(key), raw); err != nil {
			return fmt.Errorf("put raw %s: %w", key, err)
		}
		return nil
	})
}
