package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtBase(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, DefaultClockBase, clock.Current())
	assert.Equal(t, int64(0), clock.Ticks())
}

func TestDeterministicClock_NowAdvancesMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	assert.Equal(t, DefaultClockBase.Add(time.Second), first)
	assert.Equal(t, first, clock.Current())

	second := clock.Now()
	assert.True(t, second.After(first))
	assert.Equal(t, int64(2), clock.Ticks())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()

	clock.Now()
	clock.Now()
	clock.Now()
	assert.Equal(t, int64(3), clock.Ticks())

	clock.Reset()
	assert.Equal(t, DefaultClockBase, clock.Current())
	assert.Equal(t, DefaultClockBase.Add(time.Second), clock.Now())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 50

	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]struct{})
	for ts := range seen {
		unique[ts] = struct{}{}
	}
	require.Len(t, unique, goroutines, "every call must return a distinct instant")
	assert.Equal(t, int64(goroutines), clock.Ticks())
}
