package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/motion"
)

type busJob struct {
	buf []byte
	wn  int
	rn  int
}

// transactor executes one synchronous combined transaction against the
// peripheral: write buf[:wn], then fill buf[:rn] when rn is positive.
type transactor interface {
	transact(ctx context.Context, buf []byte, wn, rn int) error
}

// asyncBus serializes transactions on a worker goroutine and reports them
// through the registered client, never from inside Write or WriteRead.
// The caller buffer belongs to the worker from a successful issue until
// the client receives it back.
type asyncBus struct {
	tx        transactor
	txTimeout time.Duration

	mu       sync.Mutex
	client   motion.BusClient
	inFlight bool

	jobs chan busJob
	done chan struct{}
	once sync.Once
}

func newAsyncBus(tx transactor) *asyncBus {
	b := &asyncBus{
		tx:        tx,
		txTimeout: time.Second,
		jobs:      make(chan busJob, 1),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *asyncBus) SetClient(c motion.BusClient) {
	b.mu.Lock()
	b.client = c
	b.mu.Unlock()
}

func (b *asyncBus) Write(buf []byte, n int) error {
	return b.issue(buf, n, 0)
}

func (b *asyncBus) WriteRead(buf []byte, wn, rn int) error {
	return b.issue(buf, wn, rn)
}

func (b *asyncBus) issue(buf []byte, wn, rn int) error {
	if wn <= 0 || wn > len(buf) || rn < 0 || rn > len(buf) {
		return fmt.Errorf("transaction does not fit the buffer: len %d, write %d, read %d", len(buf), wn, rn)
	}
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return motion.ErrBusBusy
	}
	b.inFlight = true
	b.mu.Unlock()
	b.jobs <- busJob{buf: buf, wn: wn, rn: rn}
	return nil
}

func (b *asyncBus) run() {
	for {
		select {
		case <-b.done:
			return
		case j := <-b.jobs:
			b.runJob(j)
		}
	}
}

func (b *asyncBus) runJob(j busJob) {
	ctx, cancel := context.WithTimeout(context.Background(), b.txTimeout)
	err := b.tx.transact(ctx, j.buf, j.wn, j.rn)
	cancel()
	if err != nil {
		err = fmt.Errorf("could not execute i2c transaction: %w", err)
		slog.Debug("bus transaction failed", "error", err)
	}
	b.mu.Lock()
	b.inFlight = false
	c := b.client
	b.mu.Unlock()
	if c != nil {
		c.TransferComplete(j.buf, err)
	}
}

// Close stops the transaction worker.
func (b *asyncBus) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
