package component

import (
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// Cli is the Body for TypeCli: an append-only output stream plus a single
// input line, used both as a standalone shell component and as the host
// for command-mode/palette preview entries (spec.md §4.5 "Command mode").
type Cli struct {
	host      *viewhost.Host
	mainCap   viewhost.ViewHandleCap
	statusCap viewhost.ViewHandleCap
	output    []string
	inputLine string
	revision  uint64
}

// NewCli creates a CLI body publishing through mainCap/statusCap on host.
func NewCli(host *viewhost.Host, mainCap, statusCap viewhost.ViewHandleCap) *Cli {
	c := &Cli{host: host, mainCap: mainCap, statusCap: statusCap}
	c.publish()
	return c
}

func (c *Cli) publish() {
	c.revision++
	lines := append(append([]string(nil), c.output...), "> "+c.inputLine)
	_ = c.host.Publish(c.mainCap, c.revision, viewhost.TextFrame{Lines: lines}, nil)
	c.revision++
	_ = c.host.Publish(c.statusCap, c.revision, viewhost.StatusFrame{Line: "ready"}, nil)
}

// DeliverInput appends printable text to the pending input line; Enter
// commits the line to the output stream (command execution itself is the
// workspace's job, dispatched via execute_command).
func (c *Cli) DeliverInput(event inputfocus.KeyEvent) error {
	if event.Kind != inputfocus.KeyPressed && event.Kind != inputfocus.KeyRepeat {
		return nil
	}
	switch event.KeyCode {
	case "Enter":
		c.output = append(c.output, "> "+c.inputLine)
		c.inputLine = ""
	case "Backspace":
		if len(c.inputLine) > 0 {
			c.inputLine = c.inputLine[:len(c.inputLine)-1]
		}
	default:
		c.inputLine += event.Text
	}
	c.publish()
	return nil
}

// AppendOutput appends a line to the output stream directly, used by the
// workspace to surface command results and palette preview entries
// without routing them through DeliverInput.
func (c *Cli) AppendOutput(line string) {
	c.output = append(c.output, line)
	c.publish()
}

// OnTick is a no-op: the CLI has no background work of its own.
func (c *Cli) OnTick() error { return nil }

// RequestFocusOnOpen reports true.
func (c *Cli) RequestFocusOnOpen() bool { return true }

// OnSave reports ErrNotSupported: only Editor instances implement save
// (spec.md §4.5 "Save action").
func (c *Cli) OnSave() error { return ErrNotSupported }

// OnTerminate releases no CLI-private resources.
func (c *Cli) OnTerminate() {}

// LastLine returns the most recently appended output line, used by tests
// asserting on command results.
func (c *Cli) LastLine() string {
	if len(c.output) == 0 {
		return ""
	}
	return c.output[len(c.output)-1]
}
