package router

import (
	"sync"
	"testing"
)

func TestUserLockerSerializesPerUser(t *testing.T) {
	l := newUserLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.acquire(1000)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestUserLockerIndependentUsers(t *testing.T) {
	l := newUserLocker()

	release := l.acquire(1000)
	defer release()

	done := make(chan struct{})
	go func() {
		r := l.acquire(2000)
		r()
		close(done)
	}()

	// A different user's lock must not block behind ours.
	<-done
}

func TestUserLockerReleaseIdempotent(t *testing.T) {
	l := newUserLocker()

	release := l.acquire(1000)
	release()
	release() // second call is a no-op

	// The lock is reacquirable afterwards.
	release = l.acquire(1000)
	release()
}

func TestUserLockerCleansUpEntries(t *testing.T) {
	l := newUserLocker()

	for id := int64(0); id < 50; id++ {
		release := l.acquire(id)
		release()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.locks) != 0 {
		t.Fatalf("expected lock map to be empty, got %d entries", len(l.locks))
	}
}
