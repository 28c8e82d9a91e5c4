package workspace

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/component"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// ErrUnknownCommand is returned by ExecuteCommand for a verb outside the
// closed command surface of spec.md §6.
var ErrUnknownCommand = errors.New("unknown command")

// paletteEntry is one command-palette preview line (spec.md §4.5 "Command
// mode": "name, category, key-binding, invocation pattern").
type paletteEntry struct {
	Name       string
	Category   string
	KeyBinding string
	Invocation string
}

// palette is the closed command surface's preview table (spec.md §6). Its
// ordering is fixed so palette previews are reproducible.
var palette = []paletteEntry{
	{Name: "open", Category: "launch", KeyBinding: "", Invocation: "open <editor|cli|file-picker> [args...]"},
	{Name: "list", Category: "workspace", KeyBinding: "", Invocation: "list"},
	{Name: "focus", Category: "focus", KeyBinding: "Tab", Invocation: "focus <component-id>|next|prev"},
	{Name: "close", Category: "lifecycle", KeyBinding: "", Invocation: "close <component-id>"},
	{Name: "status", Category: "workspace", KeyBinding: "", Invocation: "status <component-id>"},
	{Name: "save", Category: "editor", KeyBinding: "Ctrl+S", Invocation: "save | save-as <name>"},
}

// paletteLimit bounds how many preview entries one "cmd"/"palette"
// invocation appends (spec.md §4.5: "up to N command-palette preview
// entries").
const paletteLimit = 5

// ExecuteCommand parses and dispatches one line against the closed command
// surface of spec.md §6, returning the human-visible result line. The
// result is also echoed to the currently focused Cli component's output
// stream, if one is focused (spec.md §4.5: "returns either a human-visible
// result line (published on a CLI component's status frame) or a typed
// error").
func (w *Workspace) ExecuteCommand(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("workspace: empty command")
	}
	verb, args := fields[0], fields[1:]

	result, err := w.dispatchCommand(verb, args)
	if err != nil {
		w.audit.Emit(audit.Event{Kind: audit.KindCommandExecuted, Tick: w.tickFn(), Detail: verb, Reason: err.Error()})
		return "", err
	}
	w.audit.Emit(audit.Event{Kind: audit.KindCommandExecuted, Tick: w.tickFn(), Detail: verb})
	w.echoToFocusedCli(result)
	return result, nil
}

func (w *Workspace) dispatchCommand(verb string, args []string) (string, error) {
	switch verb {
	case "open":
		return w.cmdOpen(args)
	case "list":
		return w.cmdList(), nil
	case "focus":
		return w.cmdFocus(args)
	case "close":
		return w.cmdClose(args)
	case "status":
		return w.cmdStatus(args)
	case "save":
		return w.cmdSave("")
	case "save-as":
		if len(args) == 0 {
			return "", fmt.Errorf("workspace: save-as requires a name")
		}
		return w.cmdSave(args[0])
	case "cmd", "palette":
		return w.cmdPalette(), nil
	default:
		return "", fmt.Errorf("workspace: %q: %w", verb, ErrUnknownCommand)
	}
}

func (w *Workspace) echoToFocusedCli(line string) {
	if w.focused == nil {
		return
	}
	comp, ok := w.components[*w.focused]
	if !ok || comp.Type != component.TypeCli {
		return
	}
	if cli, ok := comp.Body.(*component.Cli); ok {
		cli.AppendOutput(line)
	}
}

func componentTypeFor(name string) (component.Type, bool) {
	switch name {
	case "editor":
		return component.TypeEditor, true
	case "cli":
		return component.TypeCli, true
	case "file-picker":
		return component.TypeFilePicker, true
	default:
		return 0, false
	}
}

func (w *Workspace) cmdOpen(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("workspace: open requires a component type")
	}
	t, ok := componentTypeFor(args[0])
	if !ok {
		return "", fmt.Errorf("workspace: open: unknown component type %q", args[0])
	}
	cfg := LaunchConfig{Type: t, Domain: kernel.DomainUser, Budget: kernel.Unlimited()}
	switch t {
	case component.TypeEditor:
		if len(args) > 1 {
			path := args[1]
			cfg.Name = path
			cfg.DocumentPath = &path
			cfg.StorageAttached = w.store != nil
		}
	case component.TypeFilePicker:
		if len(args) < 2 {
			return "", fmt.Errorf("workspace: open file-picker requires a root directory")
		}
		root := args[1]
		cfg.RootDirectory = &root
		cfg.StorageAttached = w.store != nil
	}
	id, err := w.Launch(cfg)
	if err != nil {
		return "", err
	}
	if w.components[id].Body.RequestFocusOnOpen() {
		_ = w.Focus(id)
	}
	return fmt.Sprintf("opened %s %s", args[0], id.String()), nil
}

func (w *Workspace) cmdList() string {
	var order []ids.ComponentId
	for id := range w.components {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })
	lines := make([]string, 0, len(order))
	for _, id := range order {
		c := w.components[id]
		lines = append(lines, fmt.Sprintf("%s  %-14s %-8s %s", id.String(), c.Type.String(), c.State.String(), c.Name))
	}
	if len(lines) == 0 {
		return "no components"
	}
	return strings.Join(lines, "\n")
}

func (w *Workspace) cmdFocus(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("workspace: focus requires an id, next, or prev")
	}
	switch args[0] {
	case "next":
		if err := w.FocusNext(); err != nil {
			return "", err
		}
		return "focused next", nil
	case "prev":
		if err := w.FocusPrev(); err != nil {
			return "", err
		}
		return "focused prev", nil
	default:
		id, err := ids.ParseComponentId(args[0])
		if err != nil {
			return "", fmt.Errorf("workspace: focus: invalid component id %q", args[0])
		}
		if err := w.Focus(id); err != nil {
			return "", err
		}
		return "focused " + id.String(), nil
	}
}

func (w *Workspace) cmdClose(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("workspace: close requires a component id")
	}
	id, err := ids.ParseComponentId(args[0])
	if err != nil {
		return "", fmt.Errorf("workspace: close: invalid component id %q", args[0])
	}
	if err := w.Terminate(id, "user_close"); err != nil {
		return "", err
	}
	return "closed " + id.String(), nil
}

func (w *Workspace) cmdStatus(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("workspace: status requires a component id")
	}
	id, err := ids.ParseComponentId(args[0])
	if err != nil {
		return "", fmt.Errorf("workspace: status: invalid component id %q", args[0])
	}
	c, ok := w.Component(id)
	if !ok {
		return "", fmt.Errorf("workspace: unknown component %s", id)
	}
	return fmt.Sprintf("%s: type=%s state=%s name=%q", id.String(), c.Type.String(), c.State.String(), c.Name), nil
}

func (w *Workspace) cmdSave(newName string) (string, error) {
	if w.focused == nil {
		return "", fmt.Errorf("workspace: save: no focused component")
	}
	comp, ok := w.components[*w.focused]
	if !ok || comp.Type != component.TypeEditor {
		return "", component.ErrNotSupported
	}
	if err := comp.Body.OnSave(); err != nil {
		return "", err
	}
	if newName != "" {
		comp.Name = newName
	}
	return "saved " + comp.Name, nil
}

func (w *Workspace) cmdPalette() string {
	cli := w.commandCli()
	n := len(palette)
	if n > paletteLimit {
		n = paletteLimit
	}
	lines := make([]string, 0, n)
	for _, e := range palette[:n] {
		line := fmt.Sprintf("%-8s [%s] %-8s %s", e.Name, e.Category, e.KeyBinding, e.Invocation)
		lines = append(lines, line)
		cli.AppendOutput(line)
	}
	return strings.Join(lines, "\n")
}

// commandCli reuses a running Cli component (preferring the focused one)
// or launches a fresh one (spec.md §4.5 "Command mode": "either reuses a
// running CLI component or launches one").
func (w *Workspace) commandCli() *component.Cli {
	if w.focused != nil {
		if c, ok := w.components[*w.focused]; ok && c.Type == component.TypeCli {
			if cli, ok := c.Body.(*component.Cli); ok {
				return cli
			}
		}
	}
	for _, c := range w.components {
		if c.Type == component.TypeCli && c.State == component.StateRunning {
			if cli, ok := c.Body.(*component.Cli); ok {
				return cli
			}
		}
	}
	id, err := w.Launch(LaunchConfig{Type: component.TypeCli, Domain: kernel.DomainUser, Budget: kernel.Unlimited()})
	if err != nil {
		// Policy denied launching a command CLI; fall back to a detached
		// one so the palette preview still has somewhere to print. It is
		// never registered with the workspace.
		execID := ids.NewExecutionId()
		mainCap := w.views.AllocateView(execID, viewhost.KindMain)
		statusCap := w.views.AllocateView(execID, viewhost.KindStatus)
		return component.NewCli(w.views, mainCap, statusCap)
	}
	return w.components[id].Body.(*component.Cli)
}
