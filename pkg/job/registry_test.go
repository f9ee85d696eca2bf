package job

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()

	j := r.Create("https://x.test/video")
	require.NotEmpty(t, j.ID())
	assert.Equal(t, "https://x.test/video", j.URL())
	assert.Equal(t, StatusPending, j.Status())

	got, err := r.Get(j.ID())
	require.NoError(t, err)
	assert.Same(t, j, got)
}

func TestRegistryGetUnknownID(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryConcurrentCreateUniqueIDs(t *testing.T) {
	const n = 200

	r := NewRegistry()
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Create("https://x.test/video").ID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate job id %s", id)
		seen[id] = struct{}{}
	}

	assert.Equal(t, n, r.Len())
}
