package orchestrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	km := newKeyedMutex()

	unlock := km.lock("example.com")

	acquired := make(chan struct{})
	go func() {
		u := km.lock("example.com")
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	// an unrelated key is not blocked
	other := km.lock("other.com")
	other()

	unlock()
	<-acquired

	// the entry is cleaned up once all holders are gone
	km.mu.Lock()
	require.Empty(t, km.locks)
	km.mu.Unlock()
}

func TestKeyedMutexSerializes(t *testing.T) {
	t.Parallel()

	km := newKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("example.com")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}
