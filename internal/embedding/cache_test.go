package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProvider_HitSkipsInner(t *testing.T) {
	inner := newCountingProvider(8)
	c, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"hello"})
	require.NoError(t, err)
	second, err := c.Embed(ctx, []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls(), "repeated text must not reach the inner provider")
	assert.Equal(t, first, second)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 16, stats.Capacity)
}

func TestCachedProvider_MixedBatchPreservesOrder(t *testing.T) {
	inner := newCountingProvider(8)
	c, err := NewCachedProvider(inner, 16)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, []string{"b"})
	require.NoError(t, err)

	texts := []string{"a", "b", "c", "a"}
	got, err := c.Embed(ctx, texts)
	require.NoError(t, err)

	want, err := NewMockEmbedder(8).Embed(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.Equal(t, 2, inner.calls())
	assert.Equal(t, []string{"a", "c"}, inner.batches[1], "only unique misses are forwarded, in order")
}

func TestCachedProvider_ReturnsCopies(t *testing.T) {
	c, err := NewCachedProvider(newCountingProvider(4), 4)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"x"})
	require.NoError(t, err)
	orig := first[0][0]
	first[0][0] = 42

	second, err := c.Embed(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, orig, second[0][0], "callers cannot mutate cached vectors")
}

func TestCachedProvider_Eviction(t *testing.T) {
	inner := newCountingProvider(4)
	c, err := NewCachedProvider(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := c.Embed(ctx, []string{text})
		require.NoError(t, err)
	}
	_, err = c.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls(), "a should have been evicted")
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	inner := newCountingProvider(4)
	c, err := NewCachedProvider(inner, 4)
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("boom")
	inner.setErr(boom)
	_, err = c.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, boom)

	inner.setErr(nil)
	out, err := c.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 0, int(c.Stats().Hits))
}

func TestCachedProvider_Close(t *testing.T) {
	inner := newCountingProvider(4)
	c, err := NewCachedProvider(inner, 4)
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.True(t, inner.closed)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestNewCachedProvider_InvalidCapacity(t *testing.T) {
	_, err := NewCachedProvider(newCountingProvider(4), 0)
	assert.Error(t, err)
}
