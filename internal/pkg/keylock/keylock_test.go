package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := New()

	// Unsynchronized counters: only the keyed lock protects each one.
	var countA, countB int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, counter := "key-a", &countA
			if i%2 == 0 {
				key, counter = "key-b", &countB
			}
			unlock := k.Lock(key)
			*counter++
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, countA)
	assert.Equal(t, 50, countB)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := New()

	unlock := k.Lock("x")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries)
}
