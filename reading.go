package motion

// ReadingHandler consumes a three-axis reading. Units depend on the
// requesting driver and channel. All three axes are zero when the request
// failed; a handler cannot tell that apart from a true all-zero sample.
type ReadingHandler interface {
	HandleReading(x, y, z int)
}

// ReadingHandlerFunc adapts a plain function to the ReadingHandler
// interface.
type ReadingHandlerFunc func(x, y, z int)

func (f ReadingHandlerFunc) HandleReading(x, y, z int) {
	f(x, y, z)
}
