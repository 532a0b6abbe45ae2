// Package fxos8700 drives the NXP FXOS8700CQ 6-axis accelerometer and
// magnetometer behind an asynchronous register bus. Readings are one shot:
// a request arms the sensor, waits for its data ready line and hands the
// decoded axes to the registered handler. Acceleration is reported in
// milli-g, magnetic field in raw counts of 0.1 uT.
//
// Any transport failure after a sequence has started is reported as an
// all-zero reading. With no sensor attached, a floating interrupt line can
// produce nondeterministic completions, so zeros are the uniform failure
// value and indistinguishable from a true all-zero sample.
package fxos8700

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mklimuk/motion"
)

// BufferLen is the minimum transfer buffer size: a register address byte
// on writes, six axis bytes on the largest read.
const BufferLen = 6

var (
	ErrBusy     = fmt.Errorf("reading already in progress")
	ErrNoBuffer = fmt.Errorf("transfer buffer unavailable")
)

type state int

const (
	stateIdle state = iota
	stateAccelArm
	stateAccelAwaitReady
	stateAccelPendingInterrupt
	stateAccelReading
	stateAccelDeactivating
	stateMagArm
	stateMagReading
)

// Dev is the driver instance. One acquisition sequence may be in flight at
// a time; requests made before the previous callback fired fail with
// ErrBusy. The transfer buffer is owned by exactly one party at any
// instant, the driver or the bus transport, and always returns to the
// driver before the handler is invoked.
type Dev struct {
	bus motion.BusDevice
	pin motion.InterruptPin

	mu      sync.Mutex
	state   state
	buf     []byte
	handler motion.ReadingHandler
	// decoded axes carried across the standby write
	pendX int16
	pendY int16
	pendZ int16
}

type Option func(*Dev)

// WithBuffer supplies the transfer buffer instead of letting the driver
// allocate one. Needs at least BufferLen bytes.
func WithBuffer(buf []byte) Option {
	return func(d *Dev) { d.buf = buf }
}

// WithHandler registers the reading handler at construction time.
func WithHandler(h motion.ReadingHandler) Option {
	return func(d *Dev) { d.handler = h }
}

// New wires the driver to its bus device and interrupt pin and registers
// itself as the client of both.
func New(bus motion.BusDevice, pin motion.InterruptPin, opts ...Option) (*Dev, error) {
	d := &Dev{bus: bus, pin: pin}
	for _, opt := range opts {
		opt(d)
	}
	if d.buf == nil {
		d.buf = make([]byte, BufferLen)
	}
	if len(d.buf) < BufferLen {
		return nil, fmt.Errorf("transfer buffer too short: need %d bytes, got %d", BufferLen, len(d.buf))
	}
	bus.SetClient(d)
	pin.SetClient(d)
	return d, nil
}

// SetHandler installs the result sink. The last registration wins.
func (d *Dev) SetHandler(h motion.ReadingHandler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// RequestAcceleration starts a one-shot acceleration reading. It returns
// once the first bus transaction is issued; the result arrives through the
// handler. Fails with ErrBusy while a sequence is in flight.
func (d *Dev) RequestAcceleration() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateIdle {
		return ErrBusy
	}
	if d.buf == nil {
		return ErrNoBuffer
	}
	if err := d.pin.ConfigureInput(); err != nil {
		return fmt.Errorf("could not configure interrupt pin: %w", err)
	}
	d.bus.Enable()
	buf := d.buf
	d.buf = nil
	// CTRL_REG4 and CTRL_REG5 are adjacent, one auto-incremented write
	// enables the data ready interrupt and routes it to INT1.
	buf[0] = regCtrlReg4
	buf[1] = ctrlReg4DrdyEnable
	buf[2] = ctrlReg5DrdyToInt1
	if err := d.bus.Write(buf, 3); err != nil {
		d.buf = buf
		d.bus.Disable()
		return fmt.Errorf("could not arm data ready interrupt: %w", err)
	}
	d.state = stateAccelArm
	return nil
}

// RequestMagneticField starts a one-shot magnetic field reading. Same
// contract as RequestAcceleration.
func (d *Dev) RequestMagneticField() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateIdle {
		return ErrBusy
	}
	if d.buf == nil {
		return ErrNoBuffer
	}
	d.bus.Enable()
	buf := d.buf
	d.buf = nil
	buf[0] = regMCtrlReg1
	buf[1] = mCtrlReg1OneShotHybrid
	if err := d.bus.Write(buf, 2); err != nil {
		d.buf = buf
		d.bus.Disable()
		return fmt.Errorf("could not trigger one-shot measurement: %w", err)
	}
	d.state = stateMagArm
	return nil
}

// TransferComplete is the bus completion entry point. The handler, when
// due, is invoked after the lock is released so it may immediately issue
// the next request.
func (d *Dev) TransferComplete(buf []byte, err error) {
	d.mu.Lock()
	deliver, x, y, z := d.onTransferComplete(buf, err)
	h := d.handler
	d.mu.Unlock()
	if deliver && h != nil {
		h.HandleReading(x, y, z)
	}
}

func (d *Dev) onTransferComplete(buf []byte, err error) (deliver bool, x, y, z int) {
	if d.state == stateIdle {
		// Nothing in flight, spurious completion.
		return false, 0, 0, 0
	}
	if err != nil {
		d.fail(buf)
		return true, 0, 0, 0
	}
	switch d.state {
	case stateAccelArm:
		// Interrupt first, so a sample ready between the two writes
		// still produces an edge.
		if err := d.pin.EnableInterrupts(motion.EdgeFalling); err != nil {
			d.fail(buf)
			return true, 0, 0, 0
		}
		buf[0] = regCtrlReg1
		buf[1] = ctrlReg1Active
		if err := d.bus.Write(buf, 2); err != nil {
			d.fail(buf)
			return true, 0, 0, 0
		}
		d.state = stateAccelAwaitReady

	case stateAccelAwaitReady:
		if !d.pin.Read() {
			// Data ready is active low and already asserted, the
			// sample beat the edge setup. Read it now.
			d.pin.DisableInterrupts()
			buf[0] = regOutXMsb
			if err := d.bus.WriteRead(buf, 1, 6); err != nil {
				d.fail(buf)
				return true, 0, 0, 0
			}
			d.state = stateAccelReading
		} else {
			d.buf = buf
			d.bus.Disable()
			d.state = stateAccelPendingInterrupt
		}

	case stateAccelReading:
		d.pendX = accelAxis(buf[0:2])
		d.pendY = accelAxis(buf[2:4])
		d.pendZ = accelAxis(buf[4:6])
		// Back to standby.
		buf[0] = regCtrlReg1
		buf[1] = ctrlReg1Standby
		if err := d.bus.Write(buf, 2); err != nil {
			d.fail(buf)
			return true, 0, 0, 0
		}
		d.state = stateAccelDeactivating

	case stateAccelDeactivating:
		d.bus.Disable()
		d.buf = buf
		d.state = stateIdle
		return true, int(d.pendX), int(d.pendY), int(d.pendZ)

	case stateMagArm:
		// One-shot measurement taken, read the result.
		buf[0] = regMOutXMsb
		if err := d.bus.WriteRead(buf, 1, 6); err != nil {
			d.fail(buf)
			return true, 0, 0, 0
		}
		d.state = stateMagReading

	case stateMagReading:
		mx := magAxis(buf[0:2])
		my := magAxis(buf[2:4])
		mz := magAxis(buf[4:6])
		// One-shot mode self-deactivates, no standby write needed.
		d.bus.Disable()
		d.buf = buf
		d.state = stateIdle
		return true, int(mx), int(my), int(mz)
	}
	return false, 0, 0, 0
}

// PinFired is the interrupt edge entry point. Edges matter only while a
// sample is awaited; anything else is a glitch and ignored.
func (d *Dev) PinFired() {
	d.mu.Lock()
	deliver := false
	if d.state == stateAccelPendingInterrupt && d.buf != nil {
		d.pin.DisableInterrupts()
		d.bus.Enable()
		buf := d.buf
		d.buf = nil
		buf[0] = regOutXMsb
		if err := d.bus.WriteRead(buf, 1, 6); err != nil {
			d.fail(buf)
			deliver = true
		} else {
			d.state = stateAccelReading
		}
	}
	h := d.handler
	d.mu.Unlock()
	if deliver && h != nil {
		h.HandleReading(0, 0, 0)
	}
}

// fail collapses the in-flight sequence: interrupts disarmed, bus released,
// buffer reclaimed, state back to idle. The caller delivers the zero
// reading.
func (d *Dev) fail(buf []byte) {
	d.pin.DisableInterrupts()
	d.bus.Disable()
	d.buf = buf
	d.state = stateIdle
}

// accelAxis decodes one axis: a 14-bit left-justified big-endian sample,
// 0.244 mg per count at the default 2g range. Integer math throughout.
func accelAxis(raw []byte) int16 {
	counts := int16(binary.BigEndian.Uint16(raw)) >> 2
	return int16(int(counts) * 244 / 1000)
}

// magAxis decodes one axis: plain big-endian two's complement, 0.1 uT per
// count.
func magAxis(raw []byte) int16 {
	return int16(binary.BigEndian.Uint16(raw))
}
