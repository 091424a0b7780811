package interpreter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls int
	err   error
}

func (c *countingResolver) Resolve(_ context.Context, workDir string) (*Resolved, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Resolved{Path: workDir + "/python", Stage: StageVenv}, nil
}

func TestNewCachingResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("returns next when ttl is zero", func(t *testing.T) {
		next := &countingResolver{}
		assert.Same(t, next, NewCachingResolver(next, 0))
	})

	t.Run("caches per working directory", func(t *testing.T) {
		next := &countingResolver{}
		r := NewCachingResolver(next, time.Minute)

		a1, err := r.Resolve(ctx, "/a")
		require.NoError(t, err)
		a2, err := r.Resolve(ctx, "/a")
		require.NoError(t, err)
		b, err := r.Resolve(ctx, "/b")
		require.NoError(t, err)

		assert.Equal(t, a1, a2)
		assert.Equal(t, "/b/python", b.Path)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("does not cache failures", func(t *testing.T) {
		next := &countingResolver{err: &NotFoundError{Stages: []Stage{StageSystem}}}
		r := NewCachingResolver(next, time.Minute)

		_, err := r.Resolve(ctx, "/a")
		require.Error(t, err)
		_, err = r.Resolve(ctx, "/a")
		require.True(t, errors.Is(err, ErrNotFound))

		assert.Equal(t, 2, next.calls)
	})

	t.Run("expires entries", func(t *testing.T) {
		next := &countingResolver{}
		r := NewCachingResolver(next, 20*time.Millisecond)

		_, err := r.Resolve(ctx, "/a")
		require.NoError(t, err)
		time.Sleep(60 * time.Millisecond)
		_, err = r.Resolve(ctx, "/a")
		require.NoError(t, err)

		assert.Equal(t, 2, next.calls)
	})
}
