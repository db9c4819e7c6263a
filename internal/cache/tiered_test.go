package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"judge-chat-service/internal/apperr"
)

// flakyBackend fails every Get until failures is exhausted.
type flakyBackend struct {
	*Memory
	failures int
	getCalls int
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.getCalls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("backend down")
	}
	return f.Memory.Get(ctx, key)
}

func TestTieredServesFromFastTier(t *testing.T) {
	fast := NewMemory()
	primary := &flakyBackend{Memory: NewMemory()}
	tiered := NewTiered(fast, primary, time.Minute)
	ctx := context.Background()

	require.NoError(t, fast.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, 0, primary.getCalls)
}

func TestTieredBackfillsFastTierOnPrimaryHit(t *testing.T) {
	fast := NewMemory()
	primary := NewMemory()
	tiered := NewTiered(fast, primary, time.Minute)
	ctx := context.Background()

	require.NoError(t, primary.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	refilled, err := fast.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), refilled)
}

func TestTieredRetriesPrimaryThenSucceeds(t *testing.T) {
	primary := &flakyBackend{Memory: NewMemory(), failures: 2}
	tiered := NewTiered(NewMemory(), primary, time.Minute)
	ctx := context.Background()

	require.NoError(t, primary.Memory.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, 3, primary.getCalls)
}

func TestTieredExhaustedRetriesPropagates(t *testing.T) {
	primary := &flakyBackend{Memory: NewMemory(), failures: 10}
	tiered := NewTiered(NewMemory(), primary, time.Minute)

	_, err := tiered.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeCacheUnavailable, apperr.CodeOf(err))
	assert.Equal(t, 3, primary.getCalls)
}

func TestTieredMissIsNotRetried(t *testing.T) {
	primary := &flakyBackend{Memory: NewMemory()}
	tiered := NewTiered(NewMemory(), primary, time.Minute)

	_, err := tiered.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 1, primary.getCalls)
}

func TestTieredDeleteWritesThroughBothTiers(t *testing.T) {
	fast := NewMemory()
	primary := NewMemory()
	tiered := NewTiered(fast, primary, time.Minute)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, tiered.Delete(ctx, "k"))

	_, err := fast.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = primary.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
