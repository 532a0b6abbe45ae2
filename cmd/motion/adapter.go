package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/motion/adapter"
	"github.com/mklimuk/motion/cmd/motion/console"
)

var adapterCmd = cli.Command{
	Name:  "adapter",
	Usage: "MCP2221 adapter diagnostics",
	Subcommands: cli.Commands{
		&adapterStatusCmd,
		&adapterReleaseCmd,
		&adapterGPCmd,
	},
}

// runDiag executes a single diagnostic call against the adapter and
// yaml-encodes whatever it returns.
func runDiag(call func(context.Context, *adapter.MCP2221) (interface{}, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := call(ctx, adapter.NewMCP2221())
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	if err = yaml.NewEncoder(os.Stdout).Encode(res); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

var adapterStatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the I2C engine status",
	Action: func(c *cli.Context) error {
		return runDiag(func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			return a.Status(ctx)
		})
	},
}

var adapterReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: func(c *cli.Context) error {
		return runDiag(func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

var adapterGPCmd = cli.Command{
	Name:  "gp",
	Usage: "read the GP pin levels",
	Action: func(c *cli.Context) error {
		return runDiag(func(ctx context.Context, a *adapter.MCP2221) (interface{}, error) {
			return a.ReadGPIO(ctx)
		})
	},
}
