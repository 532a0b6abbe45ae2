package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/motion"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

var ErrCommandUnsupported = errors.New("unsupported command")
var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

// HID command codes understood by the MCP2221 I2C engine.
const (
	cmdStatusSetParameters byte = 0x10
	cmdGetI2CData          byte = 0x40
	cmdReadGPIO            byte = 0x51
	cmdI2CWrite            byte = 0x90
	cmdI2CRead             byte = 0x91
	cmdI2CReadRepeatStart  byte = 0x93
	cmdI2CWriteNoStop      byte = 0x94
	cmdGetGPIOParameters   byte = 0xB0
	cmdSetGPIOParameters   byte = 0xB1
)

// MCP2221 talks the 64-byte HID report protocol of the MCP2221/MCP2221A
// USB to I2C adapter. All commands share a single request/response frame
// pair guarded by the mutex. Open claims a persistent USB handle; without
// one every command enumerates and opens the device on its own.
type MCP2221 struct {
	mx           sync.Mutex
	dev          *hid.Device
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Option func(*MCP2221)

// WithResponseWait overrides the pause between writing a command report
// and reading its response.
func WithResponseWait(wait time.Duration) MCP2221Option {
	return func(d *MCP2221) { d.responseWait = wait }
}

func NewMCP2221(opts ...MCP2221Option) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type MCP2221Status struct {
	BufferCounter          int    `yaml:"buffer_counter"`
	SpeedDivider           int    `yaml:"speed_divider"`
	Timeout                int    `yaml:"timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent"`
	ReadPending            int    `yaml:"read_pending"`
}

type GPIOMode byte

const (
	GPIOModeOut         GPIOMode = 0b00000000
	GPIOModeIn          GPIOMode = 0b00001000
	GPIOModeNoOperation GPIOMode = 0xEF
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "NOOP"
	}
}

type GPIODesignation byte

// Dedicated and alternate pin functions per GP pin. The designation
// value is only meaningful for the pin it is set on.
const (
	GPIOOperation GPIODesignation = 0b00000000

	GPIO0LedUartRx GPIODesignation = 0b00000001
	GPIO0SSPND     GPIODesignation = 0b00000010

	GPIO1ClockOutput        GPIODesignation = 0b00000001
	GPIO1ADC1               GPIODesignation = 0b00000010
	GPIO1LedUartTx          GPIODesignation = 0b00000011
	GPIO1InterruptDetection GPIODesignation = 0b00000100

	GPIO2ClockOutput GPIODesignation = 0b00000001
	GPIO2ADC2        GPIODesignation = 0b00000010
	GPIO2DAC1        GPIODesignation = 0b00000011

	GPIO3LEDI2C GPIODesignation = 0b00000001
	GPIO3ADC3   GPIODesignation = 0b00000010
	GPIO3DAC2   GPIODesignation = 0b00000011
)

const gpioModeMask = 0b00001000
const gpioOperationMask = 0b00000111

type MCP2221GPIOValues struct {
	GPIO0Mode  GPIOMode `yaml:"GP0_mode"`
	GPIO0Value byte     `yaml:"GPIO0"`
	GPIO1Mode  GPIOMode `yaml:"GP1_mode"`
	GPIO1Value byte     `yaml:"GPIO1"`
	GPIO2Mode  GPIOMode `yaml:"GP2_mode"`
	GPIO2Value byte     `yaml:"GPIO2"`
	GPIO3Mode  GPIOMode `yaml:"GP3_mode"`
	GPIO3Value byte     `yaml:"GPIO3"`
}

// Value returns the input level of pin 0 through 3.
func (v MCP2221GPIOValues) Value(pin int) byte {
	switch pin {
	case 0:
		return v.GPIO0Value
	case 1:
		return v.GPIO1Value
	case 2:
		return v.GPIO2Value
	case 3:
		return v.GPIO3Value
	}
	return 0
}

type MCP2221GPIOParameters struct {
	GPIO0Mode        GPIOMode        `yaml:"GP0_mode"`
	GPIO0Designation GPIODesignation `yaml:"GP0_designation"`
	GPIO1Mode        GPIOMode        `yaml:"GP1_mode"`
	GPIO1Designation GPIODesignation `yaml:"GP1_designation"`
	GPIO2Mode        GPIOMode        `yaml:"GP2_mode"`
	GPIO2Designation GPIODesignation `yaml:"GP2_designation"`
	GPIO3Mode        GPIOMode        `yaml:"GP3_mode"`
	GPIO3Designation GPIODesignation `yaml:"GP3_designation"`
}

// SetPin overrides the mode and designation of pin 0 through 3, leaving
// the other pins untouched.
func (p *MCP2221GPIOParameters) SetPin(pin int, mode GPIOMode, designation GPIODesignation) {
	switch pin {
	case 0:
		p.GPIO0Mode, p.GPIO0Designation = mode, designation
	case 1:
		p.GPIO1Mode, p.GPIO1Designation = mode, designation
	case 2:
		p.GPIO2Mode, p.GPIO2Designation = mode, designation
	case 3:
		p.GPIO3Mode, p.GPIO3Designation = mode, designation
	}
}

// Open claims a USB handle and keeps it until Close. With more than one
// adapter attached the device index must be given.
func (d *MCP2221) Open(id ...int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.dev != nil {
		return nil
	}
	dev, err := openDevice(id...)
	if err != nil {
		return err
	}
	d.dev = dev
	return nil
}

func (d *MCP2221) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	return err
}

func openDevice(id ...int) (*hid.Device, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	idx := 0
	if len(id) == 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification: %d devices attached", len(devs))
		}
	} else {
		idx = id[0]
		if idx < 0 || idx >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", idx)
		}
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// WriteToAddr writes buffer to the peripheral at address as a single
// transaction terminated with a STOP condition.
func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.writeToAddr(ctx, cmdI2CWrite, address, buffer)
}

// WriteToAddrNoStop writes buffer without the trailing STOP so that a
// repeated start read can follow.
func (d *MCP2221) WriteToAddrNoStop(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.writeToAddr(ctx, cmdI2CWriteNoStop, address, buffer)
}

func (d *MCP2221) writeToAddr(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	if len(buffer) > 0 {
		copy(d.request[4:], buffer)
	}
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	// the engine is still holding the bus from a previous transfer
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy")
		return motion.ErrBusBusy
	}
	return nil
}

// ReadFromAddr fills buffer from the peripheral at address.
func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.readFromAddr(ctx, cmdI2CRead, address, buffer)
}

// ReadFromAddrRepeatedStart reads after a repeated start, pairing with a
// preceding WriteToAddrNoStop.
func (d *MCP2221) ReadFromAddrRepeatedStart(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.readFromAddr(ctx, cmdI2CReadRepeatStart, address, buffer)
}

func (d *MCP2221) readFromAddr(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	d.request[0] = cmdGetI2CData
	clear(d.response)
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}

	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) SetGPIOParameters(ctx context.Context, params MCP2221GPIOParameters) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetGPIOParameters
	d.request[1] = 0x01
	d.request[2] = byte(params.GPIO0Designation) | byte(params.GPIO0Mode)
	d.request[3] = byte(params.GPIO1Designation) | byte(params.GPIO1Mode)
	d.request[4] = byte(params.GPIO2Designation) | byte(params.GPIO2Mode)
	d.request[5] = byte(params.GPIO3Designation) | byte(params.GPIO3Mode)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("set GP parameters command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return ErrCommandFailed
	}
	return nil
}

// Read returns the raw input levels of the four GP pins.
func (d *MCP2221) Read(ctx context.Context, id ...int) ([]byte, error) {
	res, err := d.ReadGPIO(ctx, id...)
	if err != nil {
		return nil, err
	}
	return []byte{res.GPIO0Value, res.GPIO1Value, res.GPIO2Value, res.GPIO3Value}, nil
}

func (d *MCP2221) ReadGPIO(ctx context.Context, id ...int) (MCP2221GPIOValues, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdReadGPIO
	err := d.send(ctx, id...)
	var res MCP2221GPIOValues
	if err != nil {
		return res, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandFailed
	}
	res.GPIO0Value, res.GPIO0Mode = pinLevel(d.response[2], d.response[3])
	res.GPIO1Value, res.GPIO1Mode = pinLevel(d.response[4], d.response[5])
	res.GPIO2Value, res.GPIO2Mode = pinLevel(d.response[6], d.response[7])
	res.GPIO3Value, res.GPIO3Mode = pinLevel(d.response[8], d.response[9])
	return res, nil
}

// pinLevel decodes a value/direction byte pair from the read GPIO
// response. A direction byte of 0xEF marks a pin not in GPIO operation.
func pinLevel(val, dir byte) (byte, GPIOMode) {
	if dir == byte(GPIOModeNoOperation) {
		return val, GPIOModeNoOperation
	}
	return val, GPIOMode(dir << 3)
}

func (d *MCP2221) GetGPIOParameters(ctx context.Context) (MCP2221GPIOParameters, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetGPIOParameters
	d.request[1] = 0x01
	err := d.send(ctx)
	if err != nil {
		return MCP2221GPIOParameters{}, fmt.Errorf("get GP parameters command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return MCP2221GPIOParameters{}, ErrCommandUnsupported
	}
	var params MCP2221GPIOParameters
	params.GPIO0Mode, params.GPIO0Designation = pinParams(d.response[4])
	params.GPIO1Mode, params.GPIO1Designation = pinParams(d.response[5])
	params.GPIO2Mode, params.GPIO2Designation = pinParams(d.response[6])
	params.GPIO3Mode, params.GPIO3Designation = pinParams(d.response[7])
	return params, nil
}

func pinParams(b byte) (GPIOMode, GPIODesignation) {
	return GPIOMode(b & gpioModeMask), GPIODesignation(b & gpioOperationMask)
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// Status response frame offsets: requested and transferred sizes at
// 9..12, buffer counter 13, speed divider 14, timeout 15, current
// address 16..17, pending reads 25.
func bufferToStatus(buffer []byte) *MCP2221Status {
	return &MCP2221Status{
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
		BufferCounter:          int(buffer[13]),
		SpeedDivider:           int(buffer[14]),
		Timeout:                int(buffer[15]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		ReadPending:            int(buffer[25]),
	}
}

func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

// ReleaseBus cancels the current transfer and frees the I2C engine.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	d.request[2] = 0x10
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context, id ...int) error {
	dev := d.dev
	if dev == nil {
		var err error
		dev, err = openDevice(id...)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := dev.Close(); cerr != nil {
				slog.Debug("could not close adapter device", "error", cerr)
			}
		}()
	}
	slog.Debug("sending adapter request", "frame", hex.EncodeToString(d.request))
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != len(d.request) {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != len(d.response) {
		return fmt.Errorf("short read: %d", n)
	}
	slog.Debug("adapter response", "frame", hex.EncodeToString(d.response))
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
