package fxos8700

import (
	"fmt"
	"sync"

	"github.com/mklimuk/motion"
)

var errSimFault = fmt.Errorf("simulated bus fault")

// Sim is a register-level simulation of the FXOS8700CQ together with its
// bus transport and data ready line, for running the driver without
// hardware. It keeps an in-memory register file and reacts to control
// writes the way the chip does: activating the accelerometer with the data
// ready interrupt enabled asserts the active-low line once a sample is
// ready, triggering the armed edge.
//
// Completions and edge notifications are delivered in order on an internal
// goroutine, never from inside an issue call. Bus and pin facets are
// obtained through Bus and Pin.
type Sim struct {
	mu        sync.Mutex
	regs      [0x79]byte
	client    motion.BusClient
	pinClient motion.PinClient

	enabled  bool
	inFlight bool
	armed    motion.Edge
	level    bool // electrical level, true = high (deasserted)

	readyNow   bool
	failNext   int
	rejectNext int

	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewSim starts the simulation with the line deasserted and WHO_AM_I
// preloaded.
func NewSim() *Sim {
	s := &Sim{
		level:  true,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}
	s.regs[regWhoAmI] = whoAmIValue
	go s.run()
	return s
}

// Close stops the delivery goroutine. Pending notifications are dropped.
func (s *Sim) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Sim) run() {
	for {
		select {
		case f := <-s.events:
			f()
		case <-s.done:
			return
		}
	}
}

func (s *Sim) enqueue(f func()) {
	select {
	case s.events <- f:
	case <-s.done:
	}
}

// Bus returns the bus transport facet.
func (s *Sim) Bus() motion.BusDevice { return &simBus{s} }

// Pin returns the interrupt line facet.
func (s *Sim) Pin() motion.InterruptPin { return &simPin{s} }

// SetAcceleration seeds the accelerometer output registers. Values are raw
// 14-bit counts; the two low padding bits are filled in.
func (s *Sim) SetAcceleration(x, y, z int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put16(regOutXMsb, uint16(x)<<2)
	s.put16(regOutYMsb, uint16(y)<<2)
	s.put16(regOutZMsb, uint16(z)<<2)
}

// SetMagneticField seeds the magnetometer output registers with raw counts.
func (s *Sim) SetMagneticField(x, y, z int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put16(regMOutXMsb, uint16(x))
	s.put16(regMOutYMsb, uint16(y))
	s.put16(regMOutZMsb, uint16(z))
}

// SetReadyImmediately makes the data ready line assert during the
// activation write instead of after its completion, so the driver finds
// the sample already waiting when it polls the line.
func (s *Sim) SetReadyImmediately(ready bool) {
	s.mu.Lock()
	s.readyNow = ready
	s.mu.Unlock()
}

// FailNext makes the next n transactions complete with a transport error.
func (s *Sim) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// RejectNext makes the next n issue calls fail synchronously with
// motion.ErrBusBusy, as a contended shared bus would.
func (s *Sim) RejectNext(n int) {
	s.mu.Lock()
	s.rejectNext = n
	s.mu.Unlock()
}

func (s *Sim) put16(reg byte, v uint16) {
	s.regs[reg] = byte(v >> 8)
	s.regs[reg+1] = byte(v)
}

// issue validates and admits a transaction. Caller holds no lock.
func (s *Sim) issue(buf []byte, wn, rn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wn < 1 || len(buf) < wn || len(buf) < rn {
		return fmt.Errorf("transfer buffer too short: %d bytes for wn=%d rn=%d", len(buf), wn, rn)
	}
	if int(buf[0])+wn-1 > len(s.regs) || int(buf[0])+rn > len(s.regs) {
		return fmt.Errorf("register window 0x%02x out of range", buf[0])
	}
	if !s.enabled {
		return fmt.Errorf("bus channel is disabled")
	}
	if s.rejectNext > 0 {
		s.rejectNext--
		return motion.ErrBusBusy
	}
	if s.inFlight {
		return motion.ErrBusBusy
	}
	s.inFlight = true

	if s.failNext > 0 {
		s.failNext--
		s.enqueue(func() { s.complete(buf, errSimFault) })
		return nil
	}

	if rn == 0 {
		assertAfter := s.applyWrite(buf, wn)
		s.enqueue(func() { s.complete(buf, nil) })
		if assertAfter {
			// Data becomes ready only after the activation write
			// has completed.
			s.enqueue(func() { s.setLevel(false) })
		}
		return nil
	}
	reg := buf[0]
	s.enqueue(func() {
		s.mu.Lock()
		for i := 0; i < rn; i++ {
			buf[i] = s.regs[int(reg)+i]
		}
		s.mu.Unlock()
		if reg == regOutXMsb {
			// Reading the sample clears data ready.
			s.setLevel(true)
		}
		s.complete(buf, nil)
	})
	return nil
}

// applyWrite commits an auto-incremented register write and reacts to the
// control bits. It reports whether the data ready line should assert after
// the completion has been delivered. Caller holds s.mu.
func (s *Sim) applyWrite(buf []byte, wn int) bool {
	reg := buf[0]
	for i := 1; i < wn; i++ {
		s.regs[int(reg)+i-1] = buf[i]
	}
	switch {
	case reg <= regCtrlReg1 && int(regCtrlReg1) < int(reg)+wn-1:
		active := s.regs[regCtrlReg1]&ctrlReg1Active != 0
		drdy := s.regs[regCtrlReg4]&ctrlReg4DrdyEnable != 0
		if active && drdy {
			if s.readyNow {
				// Sample ready before the activation completion
				// is even delivered.
				old := s.level
				s.level = false
				if old {
					s.notifyEdge(motion.EdgeFalling)
				}
				return false
			}
			return true
		}
		if !active {
			s.level = true
		}
	case reg == regMCtrlReg1:
		// One-shot trigger self-clears once the measurement is taken.
		s.regs[regMCtrlReg1] &^= 0b00100000
	}
	return false
}

// setLevel drives the line and fires the armed edge on a transition.
func (s *Sim) setLevel(level bool) {
	s.mu.Lock()
	old := s.level
	s.level = level
	var fire bool
	if old != level {
		if level {
			fire = s.armed == motion.EdgeRising || s.armed == motion.EdgeBoth
		} else {
			fire = s.armed == motion.EdgeFalling || s.armed == motion.EdgeBoth
		}
	}
	pc := s.pinClient
	s.mu.Unlock()
	if fire && pc != nil {
		pc.PinFired()
	}
}

// notifyEdge queues an edge notification for a transition that already
// happened. Caller holds s.mu.
func (s *Sim) notifyEdge(e motion.Edge) {
	if s.armed != e && s.armed != motion.EdgeBoth {
		return
	}
	s.enqueue(func() {
		s.mu.Lock()
		pc := s.pinClient
		s.mu.Unlock()
		if pc != nil {
			pc.PinFired()
		}
	})
}

// complete hands the buffer back. inFlight drops before the client runs so
// the completion handler can issue the next transaction.
func (s *Sim) complete(buf []byte, err error) {
	s.mu.Lock()
	s.inFlight = false
	c := s.client
	s.mu.Unlock()
	if c != nil {
		c.TransferComplete(buf, err)
	}
}

type simBus struct{ s *Sim }

func (b *simBus) Enable() {
	b.s.mu.Lock()
	b.s.enabled = true
	b.s.mu.Unlock()
}

func (b *simBus) Disable() {
	b.s.mu.Lock()
	b.s.enabled = false
	b.s.mu.Unlock()
}

func (b *simBus) Write(buf []byte, n int) error {
	return b.s.issue(buf, n, 0)
}

func (b *simBus) WriteRead(buf []byte, wn, rn int) error {
	return b.s.issue(buf, wn, rn)
}

func (b *simBus) SetClient(c motion.BusClient) {
	b.s.mu.Lock()
	b.s.client = c
	b.s.mu.Unlock()
}

type simPin struct{ s *Sim }

func (p *simPin) ConfigureInput() error { return nil }

func (p *simPin) EnableInterrupts(e motion.Edge) error {
	p.s.mu.Lock()
	p.s.armed = e
	p.s.mu.Unlock()
	return nil
}

func (p *simPin) DisableInterrupts() {
	p.s.mu.Lock()
	p.s.armed = motion.EdgeNone
	p.s.mu.Unlock()
}

func (p *simPin) Read() bool {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.level
}

func (p *simPin) SetClient(c motion.PinClient) {
	p.s.mu.Lock()
	p.s.pinClient = c
	p.s.mu.Unlock()
}
