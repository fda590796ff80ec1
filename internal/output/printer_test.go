package output

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
)

func TestPrinterWithoutColor(t *testing.T) {
	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = previous })

	var buffer bytes.Buffer
	printer := NewPrinter(&buffer)
	printer.Success("selected %d files", 2)
	printer.Warning("skipped %s", "x")
	printer.Info("info")
	printer.Plain("plain %s", "line")

	expected := "selected 2 files\nskipped x\ninfo\nplain line\n"
	if buffer.String() != expected {
		t.Fatalf("unexpected output %q", buffer.String())
	}
}
