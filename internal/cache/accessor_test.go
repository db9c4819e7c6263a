package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorGetCachesLoaderResult(t *testing.T) {
	loads := 0
	acc := NewAccessor(NewMemory(), "t", time.Minute, func(_ context.Context, key int64) (string, error) {
		loads++
		return fmt.Sprintf("value-%d", key), nil
	}, nil)
	ctx := context.Background()

	val, err := acc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "value-7", val)

	val, err = acc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "value-7", val)
	assert.Equal(t, 1, loads)
}

func TestAccessorDirtyForcesReload(t *testing.T) {
	loads := 0
	acc := NewAccessor(NewMemory(), "t", time.Minute, func(_ context.Context, key int64) (string, error) {
		loads++
		return "v", nil
	}, nil)
	ctx := context.Background()

	_, err := acc.Get(ctx, 1)
	require.NoError(t, err)

	acc.Dirty(ctx, 1)

	_, err = acc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestAccessorDirtyMissingKeyIsNoop(t *testing.T) {
	acc := NewAccessor(NewMemory(), "t", time.Minute, func(_ context.Context, key int64) (string, error) {
		return "v", nil
	}, nil)

	acc.Dirty(context.Background(), 42)
	acc.DirtyMany(context.Background(), []int64{1, 2, 3})
}

func TestAccessorGetManySingleBatchCall(t *testing.T) {
	batchCalls := 0
	acc := NewAccessor(NewMemory(), "t", time.Minute,
		func(_ context.Context, key int64) (string, error) {
			t.Fatal("single loader must not be called when a batch loader exists")
			return "", nil
		},
		func(_ context.Context, keys []int64) (map[int64]string, error) {
			batchCalls++
			out := make(map[int64]string, len(keys))
			for _, key := range keys {
				out[key] = fmt.Sprintf("value-%d", key)
			}
			return out, nil
		})
	ctx := context.Background()

	out, err := acc.GetMany(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, map[int64]string{1: "value-1", 2: "value-2", 3: "value-3"}, out)

	// Every batched value was cached individually.
	out, err = acc.GetMany(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, batchCalls)
	assert.Len(t, out, 3)
}

func TestAccessorGetManyOnlyMissesHitBatchLoader(t *testing.T) {
	var batched [][]int64
	acc := NewAccessor(NewMemory(), "t", time.Minute, nil,
		func(_ context.Context, keys []int64) (map[int64]string, error) {
			batched = append(batched, keys)
			out := make(map[int64]string, len(keys))
			for _, key := range keys {
				out[key] = "v"
			}
			return out, nil
		})
	ctx := context.Background()

	_, err := acc.GetMany(ctx, []int64{1, 2})
	require.NoError(t, err)

	_, err = acc.GetMany(ctx, []int64{1, 2, 3})
	require.NoError(t, err)

	require.Len(t, batched, 2)
	assert.Equal(t, []int64{1, 2}, batched[0])
	assert.Equal(t, []int64{3}, batched[1])
}

// brokenBackend always fails, as if the whole cache were down.
type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache down")
}
func (brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (brokenBackend) Delete(context.Context, ...string) error {
	return errors.New("cache down")
}

func TestAccessorCorrectWhenCacheAlwaysFails(t *testing.T) {
	loads := 0
	acc := NewAccessor(brokenBackend{}, "t", time.Minute, func(_ context.Context, key int64) (string, error) {
		loads++
		return fmt.Sprintf("value-%d", key), nil
	}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		val, err := acc.Get(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "value-9", val)
	}
	assert.Equal(t, 3, loads)
}

func TestAccessorPropagatesLoaderError(t *testing.T) {
	wantErr := errors.New("store down")
	acc := NewAccessor(NewMemory(), "t", time.Minute, func(_ context.Context, key int64) (string, error) {
		return "", wantErr
	}, nil)

	_, err := acc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, wantErr)
}
