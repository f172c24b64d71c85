package gid

import (
	"sync"
	"testing"
)

func TestIDNonZero(t *testing.T) {
	if ID() == 0 {
		t.Fatal("ID() = 0, want nonzero")
	}
}

func TestIDStableWithinGoroutine(t *testing.T) {
	a := ID()
	b := ID()
	if a != b {
		t.Errorf("ID() changed within one goroutine: %d then %d", a, b)
	}
}

func TestIDDiffersAcrossGoroutines(t *testing.T) {
	main := ID()

	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = ID()
	}()
	wg.Wait()

	if other == 0 {
		t.Fatal("goroutine ID() = 0, want nonzero")
	}
	if other == main {
		t.Errorf("two goroutines reported the same ID %d", main)
	}
}
