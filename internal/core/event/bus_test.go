package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ N int }
type pong struct{ S string }

func TestEventsDeliveredNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e ping) { got = append(got, e.N) })

	Emit(b, ping{N: 1})
	Emit(b, ping{N: 2})
	assert.Equal(t, 2, b.Pending())
	assert.Equal(t, 0, b.DispatchAll(), "nothing in front before the swap")
	assert.Empty(t, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 2, b.DispatchAll())
	assert.Equal(t, []int{1, 2}, got)

	// Front is dropped on the next swap.
	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll())
	assert.Equal(t, []int{1, 2}, got)
}

func TestDispatchOrderFollowsFirstEmit(t *testing.T) {
	b := NewBus()
	var log []string
	Subscribe(b, func(pong) { log = append(log, "pong") })
	Subscribe(b, func(ping) { log = append(log, "ping") })

	Emit(b, pong{})
	Emit(b, ping{})
	Emit(b, pong{})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []string{"pong", "pong", "ping"}, log)

	// Repeating the cycle never duplicates a type in the dispatch order.
	for i := 0; i < 3; i++ {
		Emit(b, ping{})
		b.SwapBuffers()
	}
	assert.Len(t, b.order, 2)
}

func TestEmitDuringDispatchWaitsForNextTick(t *testing.T) {
	b := NewBus()
	var seen int
	Subscribe(b, func(e ping) {
		seen++
		if e.N < 3 {
			Emit(b, ping{N: e.N + 1})
		}
	})
	Emit(b, ping{N: 1})
	for i := 0; i < 5; i++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	assert.Equal(t, 3, seen)
}

func TestMultipleHandlers(t *testing.T) {
	b := NewBus()
	a, c := 0, 0
	Subscribe(b, func(ping) { a++ })
	Subscribe(b, func(ping) { c++ })
	Emit(b, ping{})
	b.SwapBuffers()
	assert.Equal(t, 1, b.DispatchAll())
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}
