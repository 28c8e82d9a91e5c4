// Package runtime implements the top-level handle_input -> tick -> render
// loop of spec.md §4.6 and the boot profile application that decides what
// a capsule process launches at startup. It is grounded on the teacher's
// cmd/agsh/main.go outer loop: a single goroutine alternating between
// draining input and advancing state, with the display pulled rather than
// pushed to.
package runtime

import (
	"fmt"

	"github.com/capsule-systems/capsule/internal/component"
	"github.com/capsule-systems/capsule/internal/config"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/klog"
	"github.com/capsule-systems/capsule/internal/platform"
	"github.com/capsule-systems/capsule/internal/viewhost"
	"github.com/capsule-systems/capsule/internal/workspace"
)

var log = klog.Component("runtime")

// Runtime ties a Workspace to a platform seam and a frame renderer,
// driving the pull-model render loop of spec.md §4.6.
type Runtime struct {
	ws       *workspace.Workspace
	renderer *viewhost.Renderer
	display  platform.Display
	input    platform.Input
	tick     platform.Tick
}

// New creates a Runtime over ws, rendering through display and reading
// events from input, advancing time through tick.
func New(ws *workspace.Workspace, display platform.Display, input platform.Input, tick platform.Tick) *Runtime {
	return &Runtime{
		ws:       ws,
		renderer: viewhost.NewRenderer(),
		display:  display,
		input:    input,
		tick:     tick,
	}
}

// Workspace exposes the underlying orchestrator for callers that need
// direct access (e.g. the command surface's REPL entrypoint).
func (r *Runtime) Workspace() *workspace.Workspace { return r.ws }

// ApplyBootProfile launches whatever cfg.BootProfile specifies before the
// main loop starts (spec.md §4.6 "boot profile application"):
//
//   - ProfileWorkspace launches nothing; the user opens components by hand.
//   - ProfileEditor launches a single focused Editor with no bound document.
//   - ProfileKiosk launches a single unfocusable Custom component tagged
//     with cfg.KioskTag, so an operator-facing dashboard can own the whole
//     display without exposing a command surface.
func ApplyBootProfile(ws *workspace.Workspace, cfg config.Config) error {
	switch cfg.BootProfile {
	case config.ProfileWorkspace:
		return nil
	case config.ProfileEditor:
		id, err := ws.Launch(workspace.LaunchConfig{
			Type: component.TypeEditor, Name: "untitled", Domain: kernel.DomainUser,
			Budget: kernel.Unlimited(),
		})
		if err != nil {
			return fmt.Errorf("runtime: boot profile editor: %w", err)
		}
		return ws.Focus(id)
	case config.ProfileKiosk:
		_, err := ws.Launch(workspace.LaunchConfig{
			Type: component.TypeCustom, Domain: kernel.DomainUser,
			Budget: kernel.Unlimited(), CustomTag: cfg.KioskTag,
		})
		if err != nil {
			return fmt.Errorf("runtime: boot profile kiosk: %w", err)
		}
		return nil
	default:
		return nil
	}
}

// Step runs exactly one iteration of the loop: drain every pending input
// event, advance the clock by delta ticks, then render (spec.md §4.6
// "handle_input -> tick -> render, in that fixed order every pass").
func (r *Runtime) Step(delta uint64) error {
	r.handleInput()
	r.tick.Advance(delta)
	r.ws.Tick(delta)
	return r.render()
}

func (r *Runtime) handleInput() {
	for r.input.HasPending() {
		event, ok := r.input.PollEvent()
		if !ok {
			return
		}
		r.ws.RouteInput(event)
	}
}

// render pulls the focused component's current frames, diffs the main
// frame's lines against the renderer's cache, and writes only what
// changed to the display (spec.md §4.6 "the renderer pulls; the platform
// never sees a frame it's already drawn").
func (r *Runtime) render() error {
	snap := r.ws.RenderSnapshot()

	if snap.MainFrame != nil {
		text, ok := snap.MainFrame.Content.(viewhost.TextFrame)
		if ok {
			for _, d := range r.renderer.DiffMain(snap.MainFrame.ViewID, text) {
				if err := r.display.RenderMainLine(d.Line, d.Text, d.Width); err != nil {
					return fmt.Errorf("runtime: render main line %d: %w", d.Line, err)
				}
			}
			if snap.MainFrame.Cursor != nil {
				if err := r.display.SetCursor(snap.MainFrame.Cursor.Line, snap.MainFrame.Cursor.Col); err != nil {
					return fmt.Errorf("runtime: set cursor: %w", err)
				}
			}
		}
	}

	if snap.StatusFrame != nil {
		if status, ok := snap.StatusFrame.Content.(viewhost.StatusFrame); ok {
			if err := r.display.RenderStatus(status.Line); err != nil {
				return fmt.Errorf("runtime: render status: %w", err)
			}
		}
	}

	if err := r.display.RenderStatusStrip(statusStrip(snap)); err != nil {
		return fmt.Errorf("runtime: render status strip: %w", err)
	}
	if err := r.display.RenderBreadcrumbs(breadcrumbs(snap)); err != nil {
		return fmt.Errorf("runtime: render breadcrumbs: %w", err)
	}

	return r.display.Present()
}

func statusStrip(snap workspace.RenderSnapshot) string {
	total := 0
	for _, n := range snap.ComponentCounts {
		total += n
	}
	if snap.FocusedID == nil {
		return fmt.Sprintf("%d component(s), no focus", total)
	}
	return fmt.Sprintf("%d component(s), focus %s", total, snap.FocusedID.String())
}

func breadcrumbs(snap workspace.RenderSnapshot) string {
	if snap.FocusedID == nil {
		return "capsule"
	}
	return "capsule > " + snap.FocusedID.String()
}
