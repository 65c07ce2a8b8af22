package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunEmptyReturns(t *testing.T) {
	r := New()
	finished := make(chan struct{})
	go func() {
		r.Run()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on an empty reactor")
	}
}

func TestScheduleFIFO(t *testing.T) {
	r := New()
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		r.Schedule(func() { order = append(order, i) })
	}
	r.Run()

	require.Len(t, order, 10)
	for i, got := range order {
		require.Equal(t, i, got, "dispatch order must be FIFO")
	}
}

func TestScheduledTaskMaySchedule(t *testing.T) {
	r := New()
	var order []string
	r.Schedule(func() {
		order = append(order, "first")
		r.Schedule(func() { order = append(order, "third") })
		order = append(order, "second")
	})
	r.Run()

	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRunWaitsForAsyncCompletion(t *testing.T) {
	r := New()
	var completed bool

	r.Schedule(func() {
		r.BeginAsync()
		go func() {
			time.Sleep(50 * time.Millisecond)
			r.Schedule(func() {
				defer r.EndAsync()
				completed = true
			})
		}()
	})
	r.Run()

	require.True(t, completed, "Run must not return before the posted completion runs")
}

func TestChainedAsyncCompletions(t *testing.T) {
	r := New()
	var hops int

	var hop func()
	hop = func() {
		r.BeginAsync()
		go func() {
			r.Schedule(func() {
				defer r.EndAsync()
				hops++
				if hops < 5 {
					hop()
				}
			})
		}()
	}
	r.Schedule(hop)
	r.Run()

	require.Equal(t, 5, hops)
}
