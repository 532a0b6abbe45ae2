package i2c

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/motion"
)

var _ motion.BusDevice = &Device{}

type job struct {
	buf    []byte
	wn, rn int
}

// Device binds one chip address on a periph-backed host bus and exposes it
// as a motion.BusDevice. Transactions run on a worker goroutine, so issue
// calls return immediately and completions never arrive from inside them.
type Device struct {
	dev    i2c.Dev
	closer io.Closer

	mu       sync.Mutex
	client   motion.BusClient
	inFlight bool

	jobs chan job
	done chan struct{}
	once sync.Once
}

// NewDevice opens the named host bus (for example "1" or "/dev/i2c-1") and
// addresses a single device on it.
func NewDevice(busName string, addr uint16) (*Device, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, drv := range state.Loaded {
		slog.Debug("host driver loaded", "driver", drv.String())
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	d := NewDeviceFromBus(bus, addr)
	d.closer = bus
	return d, nil
}

// NewDeviceFromBus wraps an already opened bus. The bus is not closed by
// Close.
func NewDeviceFromBus(bus i2c.Bus, addr uint16) *Device {
	d := &Device{
		dev:  i2c.Dev{Bus: bus, Addr: addr},
		jobs: make(chan job, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Enable is a hint only, the host bus has no power control.
func (d *Device) Enable() {}

// Disable is a hint only, see Enable.
func (d *Device) Disable() {}

func (d *Device) Write(buf []byte, n int) error {
	return d.issue(buf, n, 0)
}

func (d *Device) WriteRead(buf []byte, wn, rn int) error {
	return d.issue(buf, wn, rn)
}

func (d *Device) SetClient(c motion.BusClient) {
	d.mu.Lock()
	d.client = c
	d.mu.Unlock()
}

// Close stops the worker and releases the host bus.
func (d *Device) Close() error {
	d.once.Do(func() { close(d.done) })
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

func (d *Device) issue(buf []byte, wn, rn int) error {
	if wn < 1 || len(buf) < wn || len(buf) < rn {
		return fmt.Errorf("transfer buffer too short: %d bytes for wn=%d rn=%d", len(buf), wn, rn)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight {
		return motion.ErrBusBusy
	}
	d.inFlight = true
	d.jobs <- job{buf: buf, wn: wn, rn: rn}
	return nil
}

func (d *Device) run() {
	for {
		select {
		case j := <-d.jobs:
			d.transact(j)
		case <-d.done:
			return
		}
	}
}

func (d *Device) transact(j job) {
	// The write bytes are copied out so the read can fill the same buffer.
	w := make([]byte, j.wn)
	copy(w, j.buf[:j.wn])
	var r []byte
	if j.rn > 0 {
		r = j.buf[:j.rn]
	}
	err := d.dev.Tx(w, r)
	if err != nil {
		err = fmt.Errorf("could not execute i2c transaction: %w", err)
		slog.Debug("i2c transaction failed", "addr", d.dev.Addr, "error", err)
	}
	d.mu.Lock()
	d.inFlight = false
	c := d.client
	d.mu.Unlock()
	if c != nil {
		c.TransferComplete(j.buf, err)
	}
}
