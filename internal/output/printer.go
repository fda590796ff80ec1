package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes coloured status lines for CLI commands. Colour is disabled
// automatically when NO_COLOR is set or stdout is not a terminal.
type Printer struct {
	writer  io.Writer
	success *color.Color
	warning *color.Color
	info    *color.Color
}

// NewPrinter builds a Printer writing to writer.
func NewPrinter(writer io.Writer) *Printer {
	return &Printer{
		writer:  writer,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
	}
}

// Success prints a green line.
func (printer *Printer) Success(format string, arguments ...interface{}) {
	printer.line(printer.success, format, arguments...)
}

// Warning prints a yellow line.
func (printer *Printer) Warning(format string, arguments ...interface{}) {
	printer.line(printer.warning, format, arguments...)
}

// Info prints a cyan line.
func (printer *Printer) Info(format string, arguments ...interface{}) {
	printer.line(printer.info, format, arguments...)
}

// Plain prints an uncoloured line.
func (printer *Printer) Plain(format string, arguments ...interface{}) {
	fmt.Fprintf(printer.writer, format+"\n", arguments...)
}

func (printer *Printer) line(style *color.Color, format string, arguments ...interface{}) {
	_, _ = style.Fprintf(printer.writer, format+"\n", arguments...)
}
