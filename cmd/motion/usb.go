package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion/adapter"
	"github.com/mklimuk/motion/cmd/motion/console"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "USB device discovery",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list attached HID devices",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "vendor",
			Usage: "only list devices with this vendor id",
		},
	},
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintln(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT")
		for _, dev := range hid.Enumerate(uint16(c.Uint("vendor")), 0) {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

// Adapters the transport layer can drive.
var knownAdapters = []struct {
	name     string
	vid, pid uint16
}{
	{"MCP2221", adapter.VendorID, adapter.ProductID},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "detect supported adapters",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintln(w, "DEVICE\tVENDOR\tPRODUCT\tPATH")
		found := 0
		for _, known := range knownAdapters {
			for _, dev := range hid.Enumerate(known.vid, known.pid) {
				_, _ = fmt.Fprintf(w, "%s\t%#x\t%#x\t%s\n", known.name, dev.VendorID, dev.ProductID, dev.Path)
				found++
			}
		}
		_ = w.Flush()
		if found == 0 {
			return console.Exit(1, "no supported adapter detected")
		}
		return nil
	},
}
