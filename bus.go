package motion

import (
	"fmt"
)

var ErrBusBusy = fmt.Errorf("bus transaction already in flight")

// BusClient receives transaction completions from a BusDevice. The slice
// handed to TransferComplete is the same one passed to Write or WriteRead;
// ownership of it returns to the client with the call. A non-nil err means
// the transaction failed on the wire and the buffer contents are undefined.
type BusClient interface {
	TransferComplete(buf []byte, err error)
}

// BusDevice is a register-addressed device behind a shared, non-blocking
// bus. Write queues a write of buf[:n]; WriteRead queues a write of
// buf[:wn] followed by a read of rn bytes into buf[:rn]. Both return
// immediately: a nil error means the device took ownership of buf until it
// hands the same slice back through the client's TransferComplete, a
// non-nil error means the transaction was never issued and the caller
// keeps the buffer.
//
// Implementations must deliver completions asynchronously, never from
// inside Write or WriteRead.
type BusDevice interface {
	Enable()
	Disable()
	Write(buf []byte, n int) error
	WriteRead(buf []byte, wn, rn int) error
	SetClient(c BusClient)
}
