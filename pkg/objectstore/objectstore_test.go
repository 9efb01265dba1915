package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/quarry-data/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	err := store.Put(ctx, "landing", "data/file.csv", strings.NewReader("a,b\n1,2\n"), "text/csv")
	require.NoError(t, err)

	data, err := store.Get(ctx, "landing", "data/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestMemStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.Get(ctx, "landing", "nope.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))

	require.NoError(t, store.Put(ctx, "landing", "some.csv", strings.NewReader("x"), ""))
	_, err = store.Get(ctx, "landing", "nope.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRead))
}

func TestMemStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.Put(ctx, "b", "k", strings.NewReader("first"), ""))
	require.NoError(t, store.Put(ctx, "b", "k", strings.NewReader("second"), ""))

	data, err := store.Get(ctx, "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestMemStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	for _, key := range []string{
		"scenes/img_3.tif",
		"scenes/img_1.tif",
		"scenes/img_2.tif",
		"other/readme.txt",
	} {
		require.NoError(t, store.Put(ctx, "b", key, strings.NewReader("x"), ""))
	}

	keys, err := store.List(ctx, "b", "scenes/", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenes/img_1.tif", "scenes/img_2.tif", "scenes/img_3.tif"}, keys)

	capped, err := store.List(ctx, "b", "scenes/", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}
