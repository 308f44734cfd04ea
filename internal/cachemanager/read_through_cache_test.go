package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeManager records cache traffic for read-through assertions.
type fakeManager[V any] struct {
	values   map[string]V
	getCalls int
	setCalls int
}

func newFakeManager[V any]() *fakeManager[V] {
	return &fakeManager[V]{values: make(map[string]V)}
}

func (f *fakeManager[V]) Get(ctx context.Context, key string) (V, bool) {
	f.getCalls++
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeManager[V]) GetMultiple(ctx context.Context, keys []string) (map[string]V, bool) {
	out := make(map[string]V)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, len(out) > 0
}

func (f *fakeManager[V]) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (V, bool) {
	return f.Get(ctx, key)
}

func (f *fakeManager[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	f.setCalls++
	f.values[key] = value
}

func (f *fakeManager[V]) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeManager[V]) Flush(ctx context.Context) error {
	f.values = make(map[string]V)
	return nil
}

func TestReadThroughCache_Get_WithCacheDisabled(t *testing.T) {
	manager := newFakeManager[string]()
	loads := 0

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			loads++
			return "compiled:" + lang, nil
		},
		true,
	)

	got, err := rtc.Get(context.Background(), "go", "go", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:go", got)

	got, err = rtc.Get(context.Background(), "go", "go", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:go", got)

	// Skipping the cache means every call hits the loader and nothing is stored
	require.Equal(t, 2, loads)
	require.Equal(t, 0, manager.getCalls)
	require.Equal(t, 0, manager.setCalls)
}

func TestReadThroughCache_Get_CacheHit(t *testing.T) {
	manager := newFakeManager[string]()
	manager.values["go"] = "compiled:go"

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			t.Fatal("loader should not run on a cache hit")
			return "", nil
		},
		false,
	)

	got, err := rtc.Get(context.Background(), "go", "go", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:go", got)
}

func TestReadThroughCache_Get_CacheMissLoadsAndStores(t *testing.T) {
	manager := newFakeManager[string]()

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			return "compiled:" + lang, nil
		},
		false,
	)

	got, err := rtc.Get(context.Background(), "rust", "rust", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:rust", got)
	require.Equal(t, 1, manager.setCalls)
	require.Equal(t, "compiled:rust", manager.values["rust"])
}

func TestReadThroughCache_Get_LoaderError(t *testing.T) {
	manager := newFakeManager[string]()
	loadErr := errors.New("query compile failed")

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			return "", loadErr
		},
		false,
	)

	_, err := rtc.Get(context.Background(), "go", "go", time.Minute)
	require.ErrorIs(t, err, loadErr)
	require.Equal(t, 0, manager.setCalls)
}

func TestReadThroughCache_GetWithRefresh_EmptyCache(t *testing.T) {
	manager := newFakeManager[string]()

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			return "compiled:" + lang, nil
		},
		false,
	)

	got, err := rtc.GetWithRefresh(context.Background(), "go", "go", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:go", got)
	require.Equal(t, 1, manager.setCalls)
}

func TestReadThroughCache_GetWithRefresh_LoaderError(t *testing.T) {
	manager := newFakeManager[string]()

	rtc := NewReadThroughCache[string, string, string](
		manager,
		func(ctx context.Context, lang string) (string, error) {
			return "", errors.New("failed to load queries")
		},
		false,
	)

	_, err := rtc.GetWithRefresh(context.Background(), "go", "go", time.Minute)
	require.Error(t, err)
}
