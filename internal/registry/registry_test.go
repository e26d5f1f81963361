package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"daogen/internal/introspection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(name string) *introspection.Entity {
	return introspection.NewEntity(name, []introspection.Column{
		{Name: "id", IsPrimaryKey: true, Elidable: true},
		{Name: "name"},
	})
}

func TestEnsureLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	reg := New(Config{Load: func(ctx context.Context, name string) (*introspection.Entity, error) {
		calls.Add(1)
		<-release
		return testEntity(name), nil
	}})

	var wg sync.WaitGroup
	results := make([]*introspection.Entity, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := reg.Ensure(context.Background(), "test")
			assert.NoError(t, err)
			results[i] = e
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, e := range results {
		assert.Same(t, results[0], e)
	}

	e, err := reg.Ensure(context.Background(), "test")
	require.NoError(t, err)
	assert.Same(t, results[0], e)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	boom := errors.New("connection refused")
	var calls atomic.Int32
	reg := New(Config{Load: func(ctx context.Context, name string) (*introspection.Entity, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return testEntity(name), nil
	}})

	_, err := reg.Ensure(context.Background(), "test")
	require.ErrorIs(t, err, boom)
	_, ok := reg.Lookup("test")
	assert.False(t, ok)

	e, err := reg.Ensure(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "test", e.Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEnsureWithoutLoader(t *testing.T) {
	reg := New(Config{})
	_, err := reg.Ensure(context.Background(), "test")
	assert.ErrorIs(t, err, introspection.ErrEntityNotFound)

	reg.Register(testEntity("test"))
	e, err := reg.Ensure(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, e.Keys)
}

func TestEnsureHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	reg := New(Config{Load: func(ctx context.Context, name string) (*introspection.Entity, error) {
		<-block
		return testEntity(name), nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Ensure(ctx, "test")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureAll(t *testing.T) {
	reg := New(Config{
		Concurrency: 2,
		Load: func(ctx context.Context, name string) (*introspection.Entity, error) {
			if name == "missing" {
				return nil, introspection.ErrEntityNotFound
			}
			return testEntity(name), nil
		},
	})

	entities, err := reg.EnsureAll(context.Background(), "users", "posts", "tags")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "users", entities[0].Name)
	assert.Equal(t, "posts", entities[1].Name)
	assert.Equal(t, "tags", entities[2].Name)
	assert.Equal(t, []string{"posts", "tags", "users"}, reg.Names())

	_, err = reg.EnsureAll(context.Background(), "users", "missing")
	assert.ErrorIs(t, err, introspection.ErrEntityNotFound)
}

func TestReset(t *testing.T) {
	var calls atomic.Int32
	reg := New(Config{Load: func(ctx context.Context, name string) (*introspection.Entity, error) {
		calls.Add(1)
		return testEntity(name), nil
	}})

	first, err := reg.Ensure(context.Background(), "test")
	require.NoError(t, err)
	reg.Reset()
	assert.Empty(t, reg.Names())

	second, err := reg.Ensure(context.Background(), "test")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}
