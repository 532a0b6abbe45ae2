package gpio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/mklimuk/motion"
)

type edgeRecorder struct {
	ch chan struct{}
}

func (e *edgeRecorder) PinFired() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func TestPin_EdgeDelivery(t *testing.T) {
	base := &gpiotest.Pin{N: "INT1", EdgesChan: make(chan gpio.Level, 1)}
	pin := FromPinIO(base)
	require.NoError(t, pin.ConfigureInput())

	rec := &edgeRecorder{ch: make(chan struct{}, 1)}
	pin.SetClient(rec)
	require.NoError(t, pin.EnableInterrupts(motion.EdgeFalling))
	defer pin.DisableInterrupts()

	base.EdgesChan <- gpio.Low
	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("edge not delivered")
	}
}

func TestPin_DisarmStopsDelivery(t *testing.T) {
	base := &gpiotest.Pin{N: "INT1", EdgesChan: make(chan gpio.Level, 1)}
	pin := FromPinIO(base)
	rec := &edgeRecorder{ch: make(chan struct{}, 1)}
	pin.SetClient(rec)
	require.NoError(t, pin.EnableInterrupts(motion.EdgeFalling))
	pin.DisableInterrupts()

	select {
	case base.EdgesChan <- gpio.Low:
	default:
	}
	select {
	case <-rec.ch:
		t.Fatal("edge delivered after disarm")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestPin_Read(t *testing.T) {
	base := &gpiotest.Pin{N: "INT1", L: gpio.High}
	pin := FromPinIO(base)
	assert.True(t, pin.Read())
	base.L = gpio.Low
	assert.False(t, pin.Read())
}
