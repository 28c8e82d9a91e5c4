package component

import (
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// Custom is the Body for TypeCustom: a minimal tagged component with a
// single status line, used by boot profiles that need a named placeholder
// component without a full editor/CLI/picker behind it (spec.md §4.6
// Kiosk profile: "launches a tagged custom component").
type Custom struct {
	host      *viewhost.Host
	statusCap viewhost.ViewHandleCap
	tag       string
	revision  uint64
}

// NewCustom creates a custom body tagged with name, publishing only a
// status frame through statusCap on host.
func NewCustom(host *viewhost.Host, statusCap viewhost.ViewHandleCap, tag string) *Custom {
	c := &Custom{host: host, statusCap: statusCap, tag: tag}
	c.revision++
	_ = c.host.Publish(c.statusCap, c.revision, viewhost.StatusFrame{Line: tag}, nil)
	return c
}

// DeliverInput is a no-op: the base Custom body has no default input
// handling; specific kiosk bodies are expected to embed and override it.
func (c *Custom) DeliverInput(inputfocus.KeyEvent) error { return nil }

// OnTick is a no-op.
func (c *Custom) OnTick() error { return nil }

// RequestFocusOnOpen reports false by default.
func (c *Custom) RequestFocusOnOpen() bool { return false }

// OnSave reports ErrNotSupported.
func (c *Custom) OnSave() error { return ErrNotSupported }

// OnTerminate releases no custom-private resources.
func (c *Custom) OnTerminate() {}

// Tag returns this instance's identifying tag.
func (c *Custom) Tag() string { return c.tag }
