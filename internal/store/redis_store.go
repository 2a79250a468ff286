package store

import (
	"context"
	"errors"
	"slices"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStore keeps each catalog record as a plain string key.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, product Product) error {
	key := Key(product.ID)
	data, err := encode(product)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return &catalogerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Product, error) {
	key := Key(id)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, catalogerrors.ErrProductNotFound
	}
	if err != nil {
		return nil, &catalogerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	rec := decode(key, raw)
	if !rec.OK() {
		return nil, &catalogerrors.StorageError{Op: "get", Key: key, Err: rec.Corrupt}
	}
	return &rec.Product, nil
}

func (s *RedisStore) Scan(ctx context.Context) ([]Record, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, &catalogerrors.StorageError{Op: "scan", Err: err}
	}
	// SCAN may return a key more than once
	slices.Sort(keys)
	keys = slices.Compact(keys)

	records := make([]Record, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		values, err := s.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, &catalogerrors.StorageError{Op: "scan", Err: err}
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				// deleted between SCAN and MGET
				continue
			}
			records = append(records, decode(keys[start+i], []byte(raw)))
		}
	}
	return records, nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]Product, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return Healthy(records), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := Key(id)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return &catalogerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
