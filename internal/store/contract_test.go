package store

import (
	"context"
	"testing"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawWriter plants bytes under a key, bypassing the codec.
type rawWriter func(key string, raw []byte) error

func lamp(id string) Product {
	return Product{
		ID:          id,
		Title:       "Lamp",
		Price:       19.99,
		Description: "Warm light",
		ImageRef:    "https://cdn.example/images/" + id + ".jpg",
		Category:    "home",
	}
}

// runCatalogContract exercises behaviour every CatalogStore must share.
func runCatalogContract(t *testing.T, newStore func(t *testing.T) (CatalogStore, rawWriter)) {
	ctx := context.Background()

	t.Run("put then get round trips", func(t *testing.T) {
		// given
		s, _ := newStore(t)
		p := lamp("a1")

		// when
		require.NoError(t, s.Put(ctx, p))
		got, err := s.Get(ctx, "a1")

		// then
		require.NoError(t, err)
		assert.Equal(t, p, *got)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s, _ := newStore(t)
		p := lamp("a1")
		require.NoError(t, s.Put(ctx, p))

		p.Price = 24.5
		require.NoError(t, s.Put(ctx, p))

		got, err := s.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 24.5, got.Price)
		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("put rejects invalid product", func(t *testing.T) {
		s, _ := newStore(t)
		p := lamp("a1")
		p.ImageRef = "/tmp/lamp.jpg"

		err := s.Put(ctx, p)

		require.ErrorIs(t, err, ErrInvalidRecord)
		_, err = s.Get(ctx, "a1")
		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
	})

	t.Run("get missing", func(t *testing.T) {
		s, _ := newStore(t)

		_, err := s.Get(ctx, "nope")

		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
	})

	t.Run("scan tags corrupt records", func(t *testing.T) {
		// given
		s, raw := newStore(t)
		require.NoError(t, s.Put(ctx, lamp("a1")))
		require.NoError(t, s.Put(ctx, lamp("a2")))
		require.NoError(t, raw(Key("broken"), []byte("{not json")))
		require.NoError(t, raw(Key("zero"), []byte(`{"id":"zero","title":"x","price":0,"image":"https://x/y","category":"c"}`)))
		require.NoError(t, raw("settings_theme", []byte("dark")))

		// when
		records, err := s.Scan(ctx)
		require.NoError(t, err)
		all, err := s.ListAll(ctx)
		require.NoError(t, err)

		// then
		assert.Len(t, records, 4)
		var corrupt []string
		for _, r := range records {
			if !r.OK() {
				corrupt = append(corrupt, r.Key)
			}
		}
		assert.ElementsMatch(t, []string{Key("broken"), Key("zero")}, corrupt)
		assert.ElementsMatch(t, []Product{lamp("a1"), lamp("a2")}, all)
	})

	t.Run("get corrupt is a storage error", func(t *testing.T) {
		s, raw := newStore(t)
		require.NoError(t, raw(Key("broken"), []byte("{not json")))

		_, err := s.Get(ctx, "broken")

		assert.ErrorIs(t, err, catalogerrors.ErrStorage)
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Put(ctx, lamp("a1")))

		require.NoError(t, s.Delete(ctx, "a1"))
		require.NoError(t, s.Delete(ctx, "a1"), "deleting a missing id is a no-op")

		_, err := s.Get(ctx, "a1")
		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
	})

	t.Run("empty catalog", func(t *testing.T) {
		s, _ := newStore(t)

		all, err := s.ListAll(ctx)

		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
