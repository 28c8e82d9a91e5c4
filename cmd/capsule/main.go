// Command capsule is the interactive entrypoint: it wires the kernel,
// scheduler, view host, input/focus service, and workspace orchestrator to
// a real terminal and runs the handle_input -> tick -> render loop until
// the user quits. It is grounded on cmd/agsh/main.go's wiring order (env,
// cache dir, debug log redirection, then the dependency graph bottom-up)
// but assembles capsule's own component graph instead of the teacher's
// bus-and-roles graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/config"
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/klog"
	"github.com/capsule-systems/capsule/internal/platform/terminal"
	"github.com/capsule-systems/capsule/internal/policy"
	"github.com/capsule-systems/capsule/internal/runtime"
	"github.com/capsule-systems/capsule/internal/scheduler"
	"github.com/capsule-systems/capsule/internal/storage"
	"github.com/capsule-systems/capsule/internal/storage/journal"
	"github.com/capsule-systems/capsule/internal/viewhost"
	"github.com/capsule-systems/capsule/internal/workspace"
)

// frameRows sizes the main view; the status/strip/breadcrumb lines are
// addressed just below it by internal/platform/terminal.
const frameRows = 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "capsule:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load("CAPSULE")

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	if f, err := klog.Init(cfg.CacheDir); err == nil {
		defer f.Close()
	}

	auditLog := audit.NewLog()
	defer func() {
		_ = auditLog.MirrorToFile(filepath.Join(cfg.CacheDir, "audit.jsonl"))
	}()

	sched := scheduler.New(uint64(cfg.Quantum), auditLog)
	k := kernel.New(sched, policy.AllowAll, auditLog)
	views := viewhost.New(auditLog, sched.CurrentTick)
	input := inputfocus.New(k, policy.AllowAll, auditLog, sched.CurrentTick)

	store, err := openCollaborator(cfg)
	if err != nil {
		return fmt.Errorf("storage collaborator: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ws := workspace.New(k, views, input, policy.AllowAll, auditLog, store, sched.CurrentTick)
	if err := runtime.ApplyBootProfile(ws, cfg); err != nil {
		return fmt.Errorf("boot profile: %w", err)
	}

	display := terminal.New(os.Stdout, frameRows)
	tin, err := terminal.NewInput()
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	defer tin.Close()
	tick := terminal.NewTick()

	rt := runtime.New(ws, display, tin, tick)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := display.Clear(); err != nil {
		return fmt.Errorf("clear display: %w", err)
	}

	const stepInterval = 33 * time.Millisecond
	ticker := time.NewTicker(stepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := rt.Step(1); err != nil {
				klog.Logger.Error().Err(err).Msg("runtime step failed")
			}
		}
	}
}

// openCollaborator picks the storage collaborator implementation: an
// HTTP-backed client when a remote endpoint is configured, otherwise a
// local LevelDB journal under the cache directory (spec.md §6).
func openCollaborator(cfg config.Config) (storage.Collaborator, error) {
	if cfg.StorageEndpoint != "" {
		return storage.NewClient(cfg.StorageEndpoint, cfg.StorageToken, "capsule"), nil
	}
	return journal.Open(filepath.Join(cfg.CacheDir, "journal.db"))
}
