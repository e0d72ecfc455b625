package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counters := map[int64]int{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		key := int64(i % 4)
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			km.Lock(key)
			defer km.Unlock(key)

			mu.Lock()
			counters[key]++
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	total := 0
	for _, n := range counters {
		total += n
	}
	assert.Equal(t, 100, total)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	km.Lock(7)
	km.Unlock(7)

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released keys must not linger in the map")
}
