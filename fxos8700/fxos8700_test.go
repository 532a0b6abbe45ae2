package fxos8700

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/motion"
)

// fakeBus is a scripted transport. Issues are recorded synchronously and
// the test delivers completions by hand, so every state transition can be
// driven step by step.
type fakeBus struct {
	client   motion.BusClient
	enabled  bool
	issueErr error
	held     []byte
	lastRn   int
	frames   [][]byte
}

func (b *fakeBus) Enable()  { b.enabled = true }
func (b *fakeBus) Disable() { b.enabled = false }

func (b *fakeBus) Write(buf []byte, n int) error { return b.issue(buf, n, 0) }

func (b *fakeBus) WriteRead(buf []byte, wn, rn int) error { return b.issue(buf, wn, rn) }

func (b *fakeBus) issue(buf []byte, wn, rn int) error {
	if b.issueErr != nil {
		err := b.issueErr
		b.issueErr = nil
		return err
	}
	b.held = buf
	b.lastRn = rn
	b.frames = append(b.frames, append([]byte(nil), buf[:wn]...))
	return nil
}

func (b *fakeBus) SetClient(c motion.BusClient) { b.client = c }

// complete hands the held buffer back, filling in read data first.
func (b *fakeBus) complete(t *testing.T, data []byte, err error) {
	t.Helper()
	require.NotNil(t, b.held, "no transaction in flight")
	buf := b.held
	b.held = nil
	copy(buf, data)
	b.client.TransferComplete(buf, err)
}

type fakePin struct {
	client  motion.PinClient
	level   bool
	armed   motion.Edge
	cfgErr  error
	armErr  error
	configs int
}

func (p *fakePin) ConfigureInput() error {
	p.configs++
	return p.cfgErr
}

func (p *fakePin) EnableInterrupts(e motion.Edge) error {
	if p.armErr != nil {
		return p.armErr
	}
	p.armed = e
	return nil
}

func (p *fakePin) DisableInterrupts() { p.armed = motion.EdgeNone }

func (p *fakePin) Read() bool { return p.level }

func (p *fakePin) SetClient(c motion.PinClient) { p.client = c }

type recorder struct {
	readings [][3]int
}

func (r *recorder) HandleReading(x, y, z int) {
	r.readings = append(r.readings, [3]int{x, y, z})
}

func newTestDev(t *testing.T) (*Dev, *fakeBus, *fakePin, *recorder) {
	t.Helper()
	bus := &fakeBus{}
	pin := &fakePin{level: true}
	rec := &recorder{}
	dev, err := New(bus, pin, WithHandler(rec))
	require.NoError(t, err)
	return dev, bus, pin, rec
}

func TestFXOS8700_AccelerationInterruptPath(t *testing.T) {
	dev, bus, pin, rec := newTestDev(t)

	require.NoError(t, dev.RequestAcceleration())
	assert.True(t, bus.enabled)
	assert.Equal(t, 1, pin.configs)
	assert.Equal(t, []byte{0x2d, 0x01, 0x01}, bus.frames[0], "data ready enable and INT1 routing")

	bus.complete(t, nil, nil)
	assert.Equal(t, motion.EdgeFalling, pin.armed)
	assert.Equal(t, []byte{0x2a, 0x01}, bus.frames[1], "active mode")

	// line still high, the driver parks and powers the bus down
	bus.complete(t, nil, nil)
	assert.False(t, bus.enabled)
	assert.Empty(t, rec.readings)

	pin.level = false
	dev.PinFired()
	assert.True(t, bus.enabled)
	assert.Equal(t, motion.EdgeNone, pin.armed, "edge disarmed before the read")
	assert.Equal(t, []byte{0x01}, bus.frames[2], "sample read at OUT_X_MSB")
	assert.Equal(t, 6, bus.lastRn)

	bus.complete(t, []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00}, nil)
	assert.Equal(t, []byte{0x2a, 0x00}, bus.frames[3], "back to standby")
	assert.Empty(t, rec.readings, "no callback before the standby write completes")

	bus.complete(t, nil, nil)
	assert.False(t, bus.enabled)
	require.Len(t, rec.readings, 1)
	assert.Equal(t, [3]int{249, 499, 749}, rec.readings[0])

	// buffer is back with the driver, a fresh request goes through
	assert.NoError(t, dev.RequestAcceleration())
}

func TestFXOS8700_AccelerationAlreadyReady(t *testing.T) {
	dev, bus, pin, rec := newTestDev(t)

	require.NoError(t, dev.RequestAcceleration())
	bus.complete(t, nil, nil)

	// sample became ready before the activation write completed
	pin.level = false
	bus.complete(t, nil, nil)
	assert.True(t, bus.enabled, "no parking, the read is issued straight away")
	assert.Equal(t, motion.EdgeNone, pin.armed)
	assert.Equal(t, []byte{0x01}, bus.frames[2])
	assert.Equal(t, 6, bus.lastRn)

	bus.complete(t, []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00}, nil)
	bus.complete(t, nil, nil)
	require.Len(t, rec.readings, 1)
	assert.Equal(t, [3]int{249, 499, 749}, rec.readings[0], "both ready paths decode identically")
}

func TestFXOS8700_MagneticField(t *testing.T) {
	dev, bus, _, rec := newTestDev(t)

	require.NoError(t, dev.RequestMagneticField())
	assert.True(t, bus.enabled)
	assert.Equal(t, []byte{0x5b, 0b00100011}, bus.frames[0], "hybrid mode one-shot trigger")

	bus.complete(t, nil, nil)
	assert.Equal(t, []byte{0x33}, bus.frames[1], "read at M_OUT_X_MSB")
	assert.Equal(t, 6, bus.lastRn)

	bus.complete(t, []byte{0xff, 0xff, 0x00, 0x01, 0x80, 0x00}, nil)
	assert.False(t, bus.enabled)
	require.Len(t, rec.readings, 1)
	assert.Equal(t, [3]int{-1, 1, -32768}, rec.readings[0])

	assert.NoError(t, dev.RequestMagneticField())
}

func TestFXOS8700_BusyWhileSequenceInFlight(t *testing.T) {
	dev, bus, pin, _ := newTestDev(t)

	steps := []struct {
		name    string
		advance func()
	}{
		{"arm write issued", func() { require.NoError(t, dev.RequestAcceleration()) }},
		{"activation issued", func() { bus.complete(t, nil, nil) }},
		{"awaiting interrupt", func() { bus.complete(t, nil, nil) }},
		{"sample read issued", func() { pin.level = false; dev.PinFired() }},
		{"standby issued", func() { bus.complete(t, []byte{1, 2, 3, 4, 5, 6}, nil) }},
	}
	for _, step := range steps {
		step.advance()
		assert.ErrorIs(t, dev.RequestAcceleration(), ErrBusy, step.name)
		assert.ErrorIs(t, dev.RequestMagneticField(), ErrBusy, step.name)
	}

	bus.complete(t, nil, nil)
	assert.NoError(t, dev.RequestMagneticField(), "idle again once the sequence finished")
}

func TestFXOS8700_TransportErrorCollapsesSequence(t *testing.T) {
	boom := errors.New("nak")
	tests := []struct {
		name  string
		drive func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin)
	}{
		{"arm write", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, boom)
		}},
		{"interrupt arming", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			pin.armErr = errors.New("gpio fault")
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, nil)
		}},
		{"activation write", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, nil)
			bus.complete(t, nil, boom)
		}},
		{"read issue after edge", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, nil)
			bus.complete(t, nil, nil)
			pin.level = false
			bus.issueErr = motion.ErrBusBusy
			dev.PinFired()
		}},
		{"sample read", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, nil)
			bus.complete(t, nil, nil)
			pin.level = false
			dev.PinFired()
			bus.complete(t, nil, boom)
		}},
		{"standby write", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestAcceleration())
			bus.complete(t, nil, nil)
			bus.complete(t, nil, nil)
			pin.level = false
			dev.PinFired()
			bus.complete(t, []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00}, nil)
			bus.complete(t, nil, boom)
		}},
		{"one-shot trigger", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestMagneticField())
			bus.complete(t, nil, boom)
		}},
		{"magnetometer read", func(t *testing.T, dev *Dev, bus *fakeBus, pin *fakePin) {
			require.NoError(t, dev.RequestMagneticField())
			bus.complete(t, nil, nil)
			bus.complete(t, nil, boom)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, bus, pin, rec := newTestDev(t)
			tt.drive(t, dev, bus, pin)

			require.Len(t, rec.readings, 1, "exactly one callback")
			assert.Equal(t, [3]int{0, 0, 0}, rec.readings[0])
			assert.Equal(t, motion.EdgeNone, pin.armed, "interrupts disarmed")
			assert.False(t, bus.enabled, "bus released")

			pin.armErr = nil
			assert.NoError(t, dev.RequestAcceleration(), "driver usable again")
			assert.Len(t, rec.readings, 1, "no second callback for the failed request")
		})
	}
}

func TestFXOS8700_RequestErrors(t *testing.T) {
	t.Run("issue rejected", func(t *testing.T) {
		dev, bus, _, rec := newTestDev(t)
		bus.issueErr = motion.ErrBusBusy
		err := dev.RequestAcceleration()
		require.Error(t, err)
		assert.ErrorIs(t, err, motion.ErrBusBusy)
		assert.False(t, bus.enabled)
		assert.Empty(t, rec.readings, "issue failures are synchronous, no callback")
		assert.NoError(t, dev.RequestAcceleration(), "buffer was retained")
	})

	t.Run("pin configuration failed", func(t *testing.T) {
		dev, bus, pin, rec := newTestDev(t)
		pin.cfgErr = errors.New("pin claimed by another driver")
		require.Error(t, dev.RequestAcceleration())
		assert.Empty(t, bus.frames, "nothing issued")
		assert.Empty(t, rec.readings)
		pin.cfgErr = nil
		assert.NoError(t, dev.RequestAcceleration())
	})

	t.Run("buffer unavailable", func(t *testing.T) {
		dev, _, _, _ := newTestDev(t)
		dev.buf = nil
		assert.ErrorIs(t, dev.RequestAcceleration(), ErrNoBuffer)
		assert.ErrorIs(t, dev.RequestMagneticField(), ErrNoBuffer)
	})
}

func TestFXOS8700_SpuriousEventsIgnored(t *testing.T) {
	dev, bus, _, rec := newTestDev(t)

	// nothing in flight: completions and edges fall on the floor
	dev.TransferComplete(make([]byte, 6), nil)
	dev.TransferComplete(make([]byte, 6), errors.New("late fault"))
	dev.PinFired()
	assert.Empty(t, rec.readings)

	require.NoError(t, dev.RequestAcceleration())
	frames := len(bus.frames)

	// an edge before the sequence is parked must not issue the read
	dev.PinFired()
	assert.Len(t, bus.frames, frames)
	assert.Empty(t, rec.readings)
}

func TestFXOS8700_HandlerMayIssueNextRequest(t *testing.T) {
	dev, bus, _, _ := newTestDev(t)

	var got [][3]int
	dev.SetHandler(motion.ReadingHandlerFunc(func(x, y, z int) {
		got = append(got, [3]int{x, y, z})
		if len(got) == 1 {
			assert.NoError(t, dev.RequestMagneticField())
		}
	}))

	require.NoError(t, dev.RequestMagneticField())
	bus.complete(t, nil, nil)
	bus.complete(t, []byte{0x00, 0x02, 0x00, 0x03, 0x00, 0x04}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, [3]int{2, 3, 4}, got[0])
	assert.Equal(t, []byte{0x5b, 0b00100011}, bus.frames[2], "next sequence started from inside the handler")
}

func TestFXOS8700_New(t *testing.T) {
	_, err := New(&fakeBus{}, &fakePin{}, WithBuffer(make([]byte, 3)))
	require.Error(t, err)

	dev, err := New(&fakeBus{}, &fakePin{}, WithBuffer(make([]byte, 16)))
	require.NoError(t, err)
	assert.NotNil(t, dev)
}

func TestFXOS8700_AccelDecode(t *testing.T) {
	tests := []struct {
		given    []byte
		expected int16
	}{
		{[]byte{0x00, 0x00}, 0},
		{[]byte{0x10, 0x00}, 249},
		{[]byte{0x20, 0x00}, 499},
		{[]byte{0x30, 0x00}, 749},
		{[]byte{0xf0, 0x00}, -249},
		{[]byte{0x7f, 0xfc}, 1998},
		{[]byte{0x80, 0x00}, -1998},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, accelAxis(test.given))
		})
	}
}

func TestFXOS8700_MagDecode(t *testing.T) {
	tests := []struct {
		given    []byte
		expected int16
	}{
		{[]byte{0x00, 0x00}, 0},
		{[]byte{0xff, 0xff}, -1},
		{[]byte{0x00, 0x01}, 1},
		{[]byte{0x80, 0x00}, -32768},
		{[]byte{0x7f, 0xff}, 32767},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, magAxis(test.given))
		})
	}
}
