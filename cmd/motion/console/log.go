package console

import (
	"fmt"
	"io"
	"os"
)

// Trace widens console output to include Debugf lines. The cli switches
// it on together with the slog debug level when run with --verbose.
var Trace bool

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

// SetOutput redirects console output, used by tests.
func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func emit(w io.Writer, tag, msg string, args []interface{}) {
	_, _ = fmt.Fprintf(w, "%s %s\n", tag, fmt.Sprintf(msg, args...))
}

func Errorf(msg string, args ...interface{}) {
	emit(errWriter, Red("ERROR:"), msg, args)
}

func Warnf(msg string, args ...interface{}) {
	emit(errWriter, Yellow("WARN:"), msg, args)
}

func Infof(msg string, args ...interface{}) {
	emit(writer, White("..."), msg, args)
}

func Debugf(msg string, args ...interface{}) {
	if !Trace {
		return
	}
	emit(writer, White("[DEBUG]"), msg, args)
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
