package console

import "github.com/fatih/color"

func paint(attrs ...color.Attribute) func(...interface{}) string {
	return color.New(attrs...).SprintFunc()
}

var (
	Red    = paint(color.FgRed)
	Yellow = paint(color.FgYellow)
	White  = paint(color.FgHiWhite)
	Cyan   = paint(color.FgCyan)
)
