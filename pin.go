package motion

// Edge selects which signal transitions on an interrupt line generate
// PinFired notifications.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return "unknown"
}

// PinClient receives edge notifications from an InterruptPin.
type PinClient interface {
	PinFired()
}

// InterruptPin is a host input line wired to a device interrupt output.
// Read reports the electrical level, true for high. PinFired is delivered
// asynchronously after an armed edge occurs, never from inside
// EnableInterrupts.
type InterruptPin interface {
	ConfigureInput() error
	EnableInterrupts(e Edge) error
	DisableInterrupts()
	Read() bool
	SetClient(c PinClient)
}
