package comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolo(t *testing.T) {
	g := Solo{}
	assert.Equal(t, 1, g.Size())
	assert.Equal(t, 0, g.Rank())
	assert.True(t, g.AnyTrue(true))
	assert.False(t, g.AnyTrue(false))
}

func TestNewLocalGroup_Ranks(t *testing.T) {
	gs := NewLocalGroup(3)
	require.Len(t, gs, 3)
	for i, g := range gs {
		assert.Equal(t, i, g.Rank())
		assert.Equal(t, 3, g.Size())
	}
}

func TestLocalGroup_AnyTrue_Reduction(t *testing.T) {
	const n = 4
	gs := NewLocalGroup(n)

	// one worker raising a flag must be visible to all
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			results[rank] = gs[rank].AnyTrue(rank == 2)
		}(i)
	}
	wg.Wait()
	for rank, got := range results {
		assert.True(t, got, "rank %d must see the raised flag", rank)
	}

	// the accumulator must reset between reductions
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			results[rank] = gs[rank].AnyTrue(false)
		}(i)
	}
	wg.Wait()
	for rank, got := range results {
		assert.False(t, got, "rank %d: stale accumulator", rank)
	}
}

func TestLocalGroup_RepeatedPhases(t *testing.T) {
	const n = 3
	const rounds = 50
	gs := NewLocalGroup(n)

	var wg sync.WaitGroup
	errs := make(chan string, n*rounds)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				want := r%2 == 0
				got := gs[rank].AnyTrue(want && rank == 0)
				if got != want {
					errs <- "reduction mismatch"
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}
