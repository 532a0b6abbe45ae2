package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit wraps a printf-style message in a cli exit code so commands can
// bail out with a single return.
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	if len(args) == 0 {
		return cli.Exit(msg, code)
	}
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
