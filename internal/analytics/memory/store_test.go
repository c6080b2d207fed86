package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightx-workers/internal/models"
)

func TestStore_Do(t *testing.T) {
	s := NewStore(5, 0)

	require.NoError(t, s.Do("a", func(m *ContextMemory) error {
		m.Push(models.NewStructuredQuery("first"))
		return nil
	}))
	require.NoError(t, s.Do("b", func(m *ContextMemory) error {
		assert.Zero(t, m.Len())
		return nil
	}))
	require.NoError(t, s.Do("a", func(m *ContextMemory) error {
		assert.Equal(t, 1, m.Len())
		return nil
	}))
	assert.Equal(t, 2, s.Len())

	boom := errors.New("boom")
	assert.ErrorIs(t, s.Do("a", func(*ContextMemory) error { return boom }), boom)
	assert.ErrorIs(t, s.Do("", func(*ContextMemory) error { return nil }), ErrEmptySessionID)
}

func TestStore_SerializesSession(t *testing.T) {
	s := NewStore(1000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do("shared", func(m *ContextMemory) error {
				m.Push(models.NewStructuredQuery("q"))
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.Do("shared", func(m *ContextMemory) error {
		assert.Equal(t, 50, m.Len())
		return nil
	}))
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(5, time.Minute)
	s.now = func() time.Time { return now }

	noop := func(*ContextMemory) error { return nil }
	require.NoError(t, s.Do("old", noop))

	now = now.Add(2 * time.Minute)
	require.NoError(t, s.Do("fresh", noop))

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	s.Drop("fresh")
	assert.Zero(t, s.Len())

	assert.Zero(t, NewStore(5, 0).Sweep())
}

func TestStore_SweepSkipsBusySession(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(5, time.Minute)
	s.now = func() time.Time { return now }

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Do("busy", func(*ContextMemory) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	now = now.Add(time.Hour)
	assert.Zero(t, s.Sweep())
	assert.Equal(t, 1, s.Len())

	close(release)
	<-done
	assert.Equal(t, 1, s.Sweep())
}
