package adapter

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mklimuk/motion"
)

type pinEvents struct {
	ch chan struct{}
}

func (p *pinEvents) PinFired() {
	select {
	case p.ch <- struct{}{}:
	default:
	}
}

func awaitEdge(t *testing.T, ch chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func expectQuiet(t *testing.T, ch chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal(msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPolledPin_FallingEdge(t *testing.T) {
	var level atomic.Bool
	level.Store(true)
	p := &polledPin{
		sample:   func() (bool, error) { return level.Load(), nil },
		interval: time.Millisecond,
	}
	ev := &pinEvents{ch: make(chan struct{}, 1)}
	p.SetClient(ev)
	require.NoError(t, p.EnableInterrupts(motion.EdgeFalling))
	defer p.DisableInterrupts()

	level.Store(false)
	awaitEdge(t, ev.ch, "falling edge not delivered")
	expectQuiet(t, ev.ch, "event without level change")

	level.Store(true)
	expectQuiet(t, ev.ch, "rising edge delivered while armed for falling")

	level.Store(false)
	awaitEdge(t, ev.ch, "second falling edge not delivered")
}

func TestPolledPin_BothEdges(t *testing.T) {
	var level atomic.Bool
	level.Store(true)
	p := &polledPin{
		sample:   func() (bool, error) { return level.Load(), nil },
		interval: time.Millisecond,
	}
	ev := &pinEvents{ch: make(chan struct{}, 1)}
	p.SetClient(ev)
	require.NoError(t, p.EnableInterrupts(motion.EdgeBoth))
	defer p.DisableInterrupts()

	level.Store(false)
	awaitEdge(t, ev.ch, "falling edge not delivered")
	level.Store(true)
	awaitEdge(t, ev.ch, "rising edge not delivered")
}

func TestPolledPin_Disarm(t *testing.T) {
	var level atomic.Bool
	level.Store(true)
	p := &polledPin{
		sample:   func() (bool, error) { return level.Load(), nil },
		interval: time.Millisecond,
	}
	ev := &pinEvents{ch: make(chan struct{}, 1)}
	p.SetClient(ev)
	require.NoError(t, p.EnableInterrupts(motion.EdgeBoth))

	level.Store(false)
	awaitEdge(t, ev.ch, "falling edge not delivered")

	p.DisableInterrupts()
	// let the watcher wind down, then drain anything already in flight
	time.Sleep(20 * time.Millisecond)
	select {
	case <-ev.ch:
	default:
	}

	level.Store(true)
	expectQuiet(t, ev.ch, "event delivered after disarm")
}
