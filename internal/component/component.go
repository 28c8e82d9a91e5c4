// Package component defines the component type variant and lifecycle
// contract the workspace manager dispatches against (spec.md §3
// "Component", §9 "Polymorphism over components"): no inheritance
// hierarchy, one variant enum, and a fixed capability set every body
// implements.
package component

import (
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// Type is the closed set of component variants (spec.md §3).
type Type int

const (
	TypeEditor Type = iota
	TypeCli
	TypeFilePicker
	TypePipelineRunner
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeEditor:
		return "Editor"
	case TypeCli:
		return "Cli"
	case TypeFilePicker:
		return "FilePicker"
	case TypePipelineRunner:
		return "PipelineRunner"
	case TypeCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// State is a component's lifecycle state (spec.md §3).
type State int

const (
	StateRunning State = iota
	StateExited
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateExited:
		return "Exited"
	case StateCancelled:
		return "Cancelled"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Body is the capability set every component variant implements (spec.md
// §9: "{deliver_input(event), on_tick(), request_focus_on_open() → bool,
// on_save() → Result, on_terminate()}"). The workspace dispatches by
// variant through this interface; there is no shared base type.
type Body interface {
	DeliverInput(event inputfocus.KeyEvent) error
	OnTick() error
	RequestFocusOnOpen() bool
	OnSave() error
	OnTerminate()
}

// Component is the workspace's bookkeeping record for one live or
// terminated component instance (spec.md §3 "Component").
type Component struct {
	ID          ids.ComponentId
	Type        Type
	ExecutionID ids.ExecutionId
	Domain      kernel.TrustDomain
	State       State
	ExitReason  string
	Focusable   bool
	Name        string
	Metadata    map[string]string

	Subscription *inputfocus.SubscriptionCap
	MainView     *viewhost.ViewHandleCap
	StatusView   *viewhost.ViewHandleCap
	MainViewID   ids.ViewId
	StatusViewID ids.ViewId

	Body Body
}

// Snapshot is the restorable record of one component, captured by
// save_session (spec.md §3 "Workspace snapshot": "ordered list of
// component snapshots (id, type, name, identity fields, metadata, state,
// exit reason, most recent main/status frames)").
type Snapshot struct {
	ID            ids.ComponentId
	Type          Type
	Name          string
	Metadata      map[string]string
	State         State
	ExitReason    string
	LastMainFrame *viewhost.Frame
	LastStatusFrame *viewhost.Frame
}
