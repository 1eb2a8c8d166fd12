package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/detreview/internal/models"
)

func TestSessionStore(t *testing.T) {
	store := New(time.Hour)

	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	_, ok := store.Get(id)
	assert.False(t, ok)

	session := &models.ReviewSession{ID: id, ImageName: "drawing.png", CreatedAt: time.Now()}
	store.Set(id, session)

	got, ok := store.Get(id)
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, 1, store.Count())

	all := store.GetAll()
	assert.Len(t, all, 1)
	assert.Same(t, session, all[id])

	store.Delete(id)
	_, ok = store.Get(id)
	assert.False(t, ok)
	assert.Empty(t, store.GetAll())
}

func TestSessionStoreExpires(t *testing.T) {
	store := New(20 * time.Millisecond)
	store.Set("old", &models.ReviewSession{ID: "old"})

	require.Eventually(t, func() bool {
		_, ok := store.Get("old")
		return !ok
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, store.GetAll())
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	store := New(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewID()
			store.Set(id, &models.ReviewSession{ID: id})
			_, _ = store.Get(id)
			_ = store.GetAll()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, store.Count())
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
