package gpio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/motion"
)

var _ motion.InterruptPin = &Pin{}

// Pin adapts a host GPIO line to motion.InterruptPin. periph exposes edges
// through the blocking WaitForEdge, so notifications are pumped from a
// background routine started when interrupts are armed.
type Pin struct {
	pin gpio.PinIO

	mu     sync.Mutex
	client motion.PinClient
	stop   chan struct{}
}

// NewPin resolves a host pin by name or number, for example "GPIO17" or
// "17".
func NewPin(name string) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return &Pin{pin: p}, nil
}

// FromPinIO wraps an already resolved pin.
func FromPinIO(p gpio.PinIO) *Pin {
	return &Pin{pin: p}
}

// ConfigureInput pulls the line up; device interrupt outputs are typically
// open drain and active low.
func (p *Pin) ConfigureInput() error {
	if err := p.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("could not configure %s as input: %w", p.pin.Name(), err)
	}
	return nil
}

func (p *Pin) EnableInterrupts(e motion.Edge) error {
	edge := gpio.NoEdge
	switch e {
	case motion.EdgeRising:
		edge = gpio.RisingEdge
	case motion.EdgeFalling:
		edge = gpio.FallingEdge
	case motion.EdgeBoth:
		edge = gpio.BothEdges
	}
	if err := p.pin.In(gpio.PullUp, edge); err != nil {
		return fmt.Errorf("could not arm %s edge detection: %w", p.pin.Name(), err)
	}
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
	}
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()
	go p.pump(stop)
	return nil
}

func (p *Pin) DisableInterrupts() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
	if err := p.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		slog.Debug("could not disarm edge detection", "pin", p.pin.Name(), "error", err)
	}
}

func (p *Pin) Read() bool {
	return p.pin.Read() == gpio.High
}

func (p *Pin) SetClient(c motion.PinClient) {
	p.mu.Lock()
	p.client = c
	p.mu.Unlock()
}

// pump waits in short slices so a disarm can stop it promptly.
func (p *Pin) pump(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !p.pin.WaitForEdge(250 * time.Millisecond) {
			continue
		}
		select {
		case <-stop:
			return
		default:
		}
		p.mu.Lock()
		c := p.client
		p.mu.Unlock()
		if c != nil {
			c.PinFired()
		}
	}
}
