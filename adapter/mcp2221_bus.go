package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/motion"
)

var _ motion.BusDevice = &MCP2221Bus{}

// MCP2221Bus drives one I2C peripheral behind an MCP2221 adapter.
type MCP2221Bus struct {
	*asyncBus
	hub  *MCP2221
	addr byte
}

func NewMCP2221Bus(hub *MCP2221, addr byte) *MCP2221Bus {
	b := &MCP2221Bus{hub: hub, addr: addr}
	b.asyncBus = newAsyncBus(b)
	return b
}

// Enable claims the USB handle so the worker does not reopen the device
// for every command. Failures surface on the first transaction instead.
func (b *MCP2221Bus) Enable() {
	if err := b.hub.Open(); err != nil {
		slog.Debug("could not claim adapter", "error", err)
	}
}

func (b *MCP2221Bus) Disable() {
	if err := b.hub.Close(); err != nil {
		slog.Debug("could not release adapter", "error", err)
	}
}

func (b *MCP2221Bus) transact(ctx context.Context, buf []byte, wn, rn int) error {
	if rn > 0 {
		err := b.hub.WriteToAddrNoStop(ctx, b.addr, buf[:wn])
		if err != nil {
			return err
		}
		return b.hub.ReadFromAddrRepeatedStart(ctx, b.addr, buf[:rn])
	}
	return b.hub.WriteToAddr(ctx, b.addr, buf[:wn])
}

var _ motion.InterruptPin = &MCP2221Pin{}

// MCP2221Pin watches one of the adapter GP pins for edges by polling its
// input level over USB, so edge latency is bounded by the polling
// interval.
type MCP2221Pin struct {
	polledPin
	hub *MCP2221
	pin int
}

func NewMCP2221Pin(hub *MCP2221, pin int) *MCP2221Pin {
	p := &MCP2221Pin{hub: hub, pin: pin}
	p.polledPin = polledPin{sample: p.sampleLevel, interval: 20 * time.Millisecond}
	return p
}

// ConfigureInput switches the pin to GPIO input operation, leaving the
// other GP pins as they are.
func (p *MCP2221Pin) ConfigureInput() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	params, err := p.hub.GetGPIOParameters(ctx)
	if err != nil {
		return fmt.Errorf("could not read GP parameters: %w", err)
	}
	params.SetPin(p.pin, GPIOModeIn, GPIOOperation)
	err = p.hub.SetGPIOParameters(ctx, params)
	if err != nil {
		return fmt.Errorf("could not configure GP%d as input: %w", p.pin, err)
	}
	return nil
}

// Read reports the current pin level, true for high. A failed USB round
// trip reads as high, the idle level of an active low interrupt line.
func (p *MCP2221Pin) Read() bool {
	level, err := p.sampleLevel()
	if err != nil {
		slog.Debug("could not read GP pin", "pin", p.pin, "error", err)
		return true
	}
	return level
}

func (p *MCP2221Pin) sampleLevel() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	values, err := p.hub.ReadGPIO(ctx)
	if err != nil {
		return false, err
	}
	return values.Value(p.pin) != 0, nil
}
