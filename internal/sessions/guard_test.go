package sessions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardSerializesSameSession(t *testing.T) {
	g := newGuard()

	const workers = 8
	const rounds = 200

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				unlock := g.lock("session-a")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*rounds, counter)
}

func TestGuardIndependentSessions(t *testing.T) {
	g := newGuard()

	unlockA := g.lock("session-a")

	// A different session must not block behind A
	done := make(chan struct{})
	go func() {
		unlockB := g.lock("session-b")
		unlockB()
		close(done)
	}()
	<-done

	unlockA()
}

func TestGuardCleansUpEntries(t *testing.T) {
	g := newGuard()

	unlock := g.lock("session-a")
	unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.entries, "released sessions must not leak entries")
}
