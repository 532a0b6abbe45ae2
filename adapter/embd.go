package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"

	"github.com/mklimuk/motion"
)

var _ motion.BusDevice = &EmbdBus{}

// EmbdBus adapts an embd I2C bus to the asynchronous device contract.
// Combined transactions address a single register, which is the only
// shape the embd register API expresses directly.
type EmbdBus struct {
	*asyncBus
	bus  embd.I2CBus
	addr byte
}

// NewEmbdBus opens the numbered host bus, usually 1 on a Raspberry Pi.
func NewEmbdBus(busNo byte, addr byte) *EmbdBus {
	return NewEmbdBusFrom(embd.NewI2CBus(busNo), addr)
}

func NewEmbdBusFrom(bus embd.I2CBus, addr byte) *EmbdBus {
	b := &EmbdBus{bus: bus, addr: addr}
	b.asyncBus = newAsyncBus(b)
	return b
}

// Enable and Disable are no-ops, embd keeps the bus handle open for the
// lifetime of the process.
func (b *EmbdBus) Enable() {}

func (b *EmbdBus) Disable() {}

func (b *EmbdBus) transact(_ context.Context, buf []byte, wn, rn int) error {
	if rn > 0 {
		if wn == 1 {
			return b.bus.ReadFromReg(b.addr, buf[0], buf[:rn])
		}
		if err := b.bus.WriteBytes(b.addr, buf[:wn]); err != nil {
			return err
		}
		data, err := b.bus.ReadBytes(b.addr, rn)
		if err != nil {
			return err
		}
		copy(buf[:rn], data)
		return nil
	}
	if wn == 1 {
		return b.bus.WriteByte(b.addr, buf[0])
	}
	return b.bus.WriteToReg(b.addr, buf[0], buf[1:wn])
}

var _ motion.InterruptPin = &EmbdPin{}

// EmbdPin exposes a sysfs GPIO line through the embd edge watcher, so
// edges arrive from the kernel instead of a polling loop.
type EmbdPin struct {
	pin embd.DigitalPin

	mu     sync.Mutex
	client motion.PinClient
	armed  bool
}

// NewEmbdPin opens the GPIO line named by key, a pin number or a board
// specific label.
func NewEmbdPin(key interface{}) (*EmbdPin, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, fmt.Errorf("could not initialize GPIO: %w", err)
	}
	pin, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, fmt.Errorf("could not open GPIO pin %v: %w", key, err)
	}
	return &EmbdPin{pin: pin}, nil
}

func (p *EmbdPin) SetClient(c motion.PinClient) {
	p.mu.Lock()
	p.client = c
	p.mu.Unlock()
}

func (p *EmbdPin) ConfigureInput() error {
	if err := p.pin.SetDirection(embd.In); err != nil {
		return fmt.Errorf("could not configure pin as input: %w", err)
	}
	return nil
}

func (p *EmbdPin) EnableInterrupts(edge motion.Edge) error {
	if edge == motion.EdgeNone {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.pin.Watch(embdEdge(edge), p.edgeFired)
	if err != nil {
		return fmt.Errorf("could not watch pin: %w", err)
	}
	p.armed = true
	return nil
}

func (p *EmbdPin) DisableInterrupts() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.armed {
		return
	}
	if err := p.pin.StopWatching(); err != nil {
		slog.Debug("could not stop watching pin", "error", err)
	}
	p.armed = false
}

// Read reports the current pin level, true for high. An unreadable line
// reads as high, the idle level of an active low interrupt.
func (p *EmbdPin) Read() bool {
	v, err := p.pin.Read()
	if err != nil {
		slog.Debug("could not read pin level", "error", err)
		return true
	}
	return v != 0
}

func (p *EmbdPin) Close() error {
	return p.pin.Close()
}

func (p *EmbdPin) edgeFired(_ embd.DigitalPin) {
	p.mu.Lock()
	c := p.client
	armed := p.armed
	p.mu.Unlock()
	if armed && c != nil {
		c.PinFired()
	}
}

func embdEdge(edge motion.Edge) embd.Edge {
	switch edge {
	case motion.EdgeRising:
		return embd.EdgeRising
	case motion.EdgeFalling:
		return embd.EdgeFalling
	case motion.EdgeBoth:
		return embd.EdgeBoth
	}
	return embd.EdgeNone
}
