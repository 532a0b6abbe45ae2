package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/motion"
)

type fakeTx struct {
	mu    sync.Mutex
	calls [][2]int
	block chan struct{}
	fill  []byte
	err   error
}

func (f *fakeTx) transact(_ context.Context, buf []byte, wn, rn int) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]int{wn, rn})
	if rn > 0 && f.fill != nil {
		copy(buf[:rn], f.fill)
	}
	return f.err
}

type completion struct {
	buf []byte
	err error
}

type completionRecorder struct {
	ch chan completion
}

func (r *completionRecorder) TransferComplete(buf []byte, err error) {
	r.ch <- completion{buf: buf, err: err}
}

func awaitCompletion(t *testing.T, ch chan completion) completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no completion delivered")
		return completion{}
	}
}

func TestAsyncBus_CompletesWithCallerBuffer(t *testing.T) {
	tx := &fakeTx{fill: []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00}}
	b := newAsyncBus(tx)
	defer b.Close()
	rec := &completionRecorder{ch: make(chan completion, 1)}
	b.SetClient(rec)

	buf := make([]byte, 6)
	buf[0] = 0x01
	require.NoError(t, b.WriteRead(buf, 1, 6))
	res := awaitCompletion(t, rec.ch)
	require.NoError(t, res.err)
	assert.Same(t, &buf[0], &res.buf[0])
	assert.Equal(t, []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00}, res.buf)
}

func TestAsyncBus_BusyWhileInFlight(t *testing.T) {
	tx := &fakeTx{block: make(chan struct{})}
	b := newAsyncBus(tx)
	defer b.Close()
	rec := &completionRecorder{ch: make(chan completion, 1)}
	b.SetClient(rec)

	buf := make([]byte, 6)
	require.NoError(t, b.Write(buf, 1))
	assert.ErrorIs(t, b.Write(buf, 1), motion.ErrBusBusy)
	assert.ErrorIs(t, b.WriteRead(buf, 1, 6), motion.ErrBusBusy)

	close(tx.block)
	res := awaitCompletion(t, rec.ch)
	assert.NoError(t, res.err)
	assert.NoError(t, b.Write(buf, 1), "bus accepts work again after the completion")
}

func TestAsyncBus_WrapsTransportError(t *testing.T) {
	boom := errors.New("boom")
	tx := &fakeTx{err: boom}
	b := newAsyncBus(tx)
	defer b.Close()
	rec := &completionRecorder{ch: make(chan completion, 1)}
	b.SetClient(rec)

	buf := make([]byte, 6)
	require.NoError(t, b.Write(buf, 2))
	res := awaitCompletion(t, rec.ch)
	assert.ErrorIs(t, res.err, boom)
	assert.ErrorContains(t, res.err, "could not execute i2c transaction")
}

func TestAsyncBus_RejectsBadLengths(t *testing.T) {
	b := newAsyncBus(&fakeTx{})
	defer b.Close()

	buf := make([]byte, 4)
	assert.Error(t, b.Write(buf, 0))
	assert.Error(t, b.Write(buf, 5))
	assert.Error(t, b.WriteRead(buf, 1, 5))
}
