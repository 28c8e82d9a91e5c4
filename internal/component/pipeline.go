package component

import (
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// PipelineRunner is the Body for TypePipelineRunner: a non-interactive
// component that advances a fixed sequence of named steps, one per
// on_tick call, and republishes its progress as a status line.
type PipelineRunner struct {
	host      *viewhost.Host
	mainCap   viewhost.ViewHandleCap
	statusCap viewhost.ViewHandleCap
	steps     []string
	current   int
	revision  uint64
	done      bool
}

// NewPipelineRunner creates a runner over steps, publishing through
// mainCap/statusCap on host.
func NewPipelineRunner(host *viewhost.Host, mainCap, statusCap viewhost.ViewHandleCap, steps []string) *PipelineRunner {
	p := &PipelineRunner{host: host, mainCap: mainCap, statusCap: statusCap, steps: steps}
	p.publish()
	return p
}

func (p *PipelineRunner) publish() {
	p.revision++
	_ = p.host.Publish(p.mainCap, p.revision, viewhost.TextFrame{Lines: append([]string(nil), p.steps...)}, nil)
	status := "idle"
	switch {
	case p.done:
		status = "complete"
	case p.current < len(p.steps):
		status = "running: " + p.steps[p.current]
	}
	p.revision++
	_ = p.host.Publish(p.statusCap, p.revision, viewhost.StatusFrame{Line: status}, nil)
}

// DeliverInput is a no-op: pipeline runners are not focus targets for
// keyboard input under their default contract, only on_tick drives them.
func (p *PipelineRunner) DeliverInput(inputfocus.KeyEvent) error { return nil }

// OnTick advances to the next step, idempotent once every step has run
// (spec.md §4.5 "calls each live component's on_tick (idempotent)").
func (p *PipelineRunner) OnTick() error {
	if p.done {
		return nil
	}
	p.current++
	if p.current >= len(p.steps) {
		p.done = true
	}
	p.publish()
	return nil
}

// RequestFocusOnOpen reports false: pipeline runners report progress
// passively and do not claim the keyboard.
func (p *PipelineRunner) RequestFocusOnOpen() bool { return false }

// OnSave reports ErrNotSupported.
func (p *PipelineRunner) OnSave() error { return ErrNotSupported }

// OnTerminate releases no pipeline-private resources.
func (p *PipelineRunner) OnTerminate() {}

// Done reports whether every step has completed.
func (p *PipelineRunner) Done() bool { return p.done }
