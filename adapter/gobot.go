package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gobot.io/x/gobot/v2/drivers/gpio"
	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/motion"
)

var _ motion.BusDevice = &GobotBus{}

// GobotBus adapts any gobot I2C connector, like the NanoPi NEO adaptor,
// to the asynchronous device contract. Combined transactions address a
// single register.
type GobotBus struct {
	*asyncBus
	board *gi2c.GenericDriver

	startMu sync.Mutex
	started bool
}

func NewGobotBus(connector gi2c.Connector, name string, addr byte, options ...func(gi2c.Config)) *GobotBus {
	b := &GobotBus{board: gi2c.NewGenericDriver(connector, name, int(addr), options...)}
	b.asyncBus = newAsyncBus(b)
	return b
}

func (b *GobotBus) Enable() {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return
	}
	if err := b.board.Start(); err != nil {
		slog.Debug("could not start i2c driver", "error", err)
		return
	}
	b.started = true
}

func (b *GobotBus) Disable() {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if !b.started {
		return
	}
	if err := b.board.Halt(); err != nil {
		slog.Debug("could not halt i2c driver", "error", err)
	}
	b.started = false
}

func (b *GobotBus) transact(_ context.Context, buf []byte, wn, rn int) error {
	if rn > 0 {
		return b.board.ReadData(buf[0], buf[:rn])
	}
	if wn == 1 {
		return b.board.WriteByte(buf[0])
	}
	return b.board.WriteData(buf[0], buf[1:wn])
}

var _ motion.InterruptPin = &GobotPin{}

// GobotPin polls a gobot digital reader for edges. Boards whose gobot
// adaptor exposes no edge reporting still get the interrupt contract,
// at polling latency.
type GobotPin struct {
	polledPin
	reader gpio.DigitalReader
	pin    string
}

func NewGobotPin(reader gpio.DigitalReader, pin string) *GobotPin {
	p := &GobotPin{reader: reader, pin: pin}
	p.polledPin = polledPin{sample: p.sampleLevel, interval: 10 * time.Millisecond}
	return p
}

// ConfigureInput is a no-op, gobot adaptors set the line direction on
// the first read.
func (p *GobotPin) ConfigureInput() error {
	return nil
}

// Read reports the current pin level, true for high. An unreadable line
// reads as high, the idle level of an active low interrupt.
func (p *GobotPin) Read() bool {
	level, err := p.sampleLevel()
	if err != nil {
		slog.Debug("could not read pin level", "pin", p.pin, "error", err)
		return true
	}
	return level
}

func (p *GobotPin) sampleLevel() (bool, error) {
	v, err := p.reader.DigitalRead(p.pin)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
