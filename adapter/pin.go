package adapter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/motion"
)

// polledPin derives edge events from a level sampler polled at a fixed
// interval. Hosts without kernel edge reporting, like a USB adapter GP
// pin, plug their sampler in and get the interrupt contract on top.
type polledPin struct {
	sample   func() (bool, error)
	interval time.Duration

	mu     sync.Mutex
	client motion.PinClient
	stop   chan struct{}
}

func (p *polledPin) SetClient(c motion.PinClient) {
	p.mu.Lock()
	p.client = c
	p.mu.Unlock()
}

func (p *polledPin) EnableInterrupts(edge motion.Edge) error {
	if edge == motion.EdgeNone {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
	}
	p.stop = make(chan struct{})
	go p.watch(p.stop, edge)
	return nil
}

func (p *polledPin) DisableInterrupts() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *polledPin) watch(stop chan struct{}, edge motion.Edge) {
	// an unreadable line reports high, the idle level of an active low
	// interrupt
	last := true
	if level, err := p.sample(); err == nil {
		last = level
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		level, err := p.sample()
		if err != nil {
			slog.Debug("could not poll pin level", "error", err)
			continue
		}
		fired := false
		switch edge {
		case motion.EdgeFalling:
			fired = last && !level
		case motion.EdgeRising:
			fired = !last && level
		case motion.EdgeBoth:
			fired = last != level
		}
		last = level
		if !fired {
			continue
		}
		p.mu.Lock()
		c := p.client
		p.mu.Unlock()
		if c != nil {
			c.PinFired()
		}
	}
}
