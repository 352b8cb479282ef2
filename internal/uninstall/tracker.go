package uninstall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/logging"
	"github.com/driversweep/driversweep/internal/rules"
)

var log = logging.L("uninstall")

// OverrideWait blocks until the operator signals that the uninstall is done,
// returning nil. It must return ctx.Err() when the context is cancelled.
type OverrideWait func(ctx context.Context) error

// Tracker supervises third-party uninstaller processes through to
// completion.
type Tracker struct {
	sys    System
	settle time.Duration
}

// NewTracker returns a tracker driving real processes. The settle delay is
// how long the Deferred strategy waits after proxy exit before scanning for
// the delegated uninstaller.
func NewTracker(settle time.Duration) *Tracker {
	return &Tracker{sys: hostSystem{}, settle: settle}
}

// SetSettle adjusts the Deferred strategy's post-proxy delay. Call before
// the first Remove.
func (t *Tracker) SetSettle(d time.Duration) {
	if d > 0 {
		t.settle = d
	}
}

// Remove runs the uninstall strategy selected by method against pkg. A
// non-nil override is raced against the strategy: whichever finishes first
// wins and cancels the other, and an override win counts as success.
func (t *Tracker) Remove(ctx context.Context, pkg inventory.DriverPackage, method rules.UninstallMethod, override OverrideWait) error {
	strategy := func(ctx context.Context) error {
		switch method {
		case rules.MethodNormal:
			return t.runNormal(ctx, pkg)
		case rules.MethodDeferred:
			return t.runDeferred(ctx, pkg)
		case rules.MethodRegistryOnly:
			return deleteUninstallKey(pkg)
		default:
			return fmt.Errorf("unknown uninstall method %q", method)
		}
	}

	if override == nil {
		return strategy(ctx)
	}
	return race(ctx, strategy, override)
}

// race runs the strategy alongside the operator's override wait. The first
// to finish cancels the other. An override win means the operator confirmed
// completion, so the strategy's eventual outcome no longer matters.
func race(ctx context.Context, strategy func(context.Context) error, override OverrideWait) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		fromOverride bool
		err          error
	}
	done := make(chan outcome, 2)
	go func() { done <- outcome{err: strategy(ctx)} }()
	go func() { done <- outcome{fromOverride: true, err: override(ctx)} }()

	first := <-done
	cancel()
	if first.fromOverride {
		if first.err == nil {
			log.Debug("operator confirmed completion, strategy cancelled")
			return nil
		}
		// The override wait failed rather than fired. The strategy result
		// is still meaningful, so fall back to it.
		first = <-done
	}
	return first.err
}

// launch parses the package's uninstall string and starts the executable.
// A missing executable means a previous run or the user already removed the
// software.
func (t *Tracker) launch(pkg inventory.DriverPackage) (Command, int32, error) {
	cmd, err := ParseCommand(pkg.UninstallString)
	if err != nil {
		return Command{}, 0, err
	}

	pid, err := t.sys.Launch(cmd)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return Command{}, 0, &AlreadyRemovedError{Target: pkg.Label()}
		}
		return Command{}, 0, fmt.Errorf("launch %s: %w", cmd.Path, err)
	}
	return cmd, pid, nil
}

// runNormal launches the uninstaller and waits out its whole process tree.
// Many uninstall entries point at a thin proxy that unpacks the real
// uninstaller and blocks on it, so the children found while the proxy runs
// are part of the job.
func (t *Tracker) runNormal(ctx context.Context, pkg inventory.DriverPackage) error {
	cmd, pid, err := t.launch(pkg)
	if err != nil {
		return err
	}
	log.Debug("uninstaller started", "exe", cmd.Path, "pid", pid)

	tree, err := t.descendants(pid)
	if err != nil {
		return err
	}
	for _, p := range append([]int32{pid}, tree...) {
		if err := t.sys.WaitExit(ctx, p); err != nil {
			return fmt.Errorf("wait for pid %d: %w", p, err)
		}
	}
	return nil
}

// descendants walks the child tree depth-first and returns every pid below
// root in discovery order.
func (t *Tracker) descendants(root int32) ([]int32, error) {
	var all []int32
	stack := []int32{root}
	for len(stack) > 0 {
		pid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids, err := t.sys.Children(pid)
		if err != nil {
			return nil, err
		}
		for _, kid := range kids {
			all = append(all, kid)
			stack = append(stack, kid)
		}
	}
	return all, nil
}

// runDeferred handles proxies that exit right after extracting their
// payload. After the proxy is gone and a short settle delay has passed, the
// process table is scanned for anything referencing the executable's
// directory; that process, if present, is the real uninstaller.
func (t *Tracker) runDeferred(ctx context.Context, pkg inventory.DriverPackage) error {
	cmd, pid, err := t.launch(pkg)
	if err != nil {
		return err
	}
	log.Debug("uninstall proxy started", "exe", cmd.Path, "pid", pid)

	if err := t.sys.WaitExit(ctx, pid); err != nil {
		return fmt.Errorf("wait for proxy %d: %w", pid, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.settle):
	}

	snapshot, err := t.sys.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("scan process table: %w", err)
	}

	needle := strings.ToLower(filepath.Dir(cmd.Path))
	for _, info := range snapshot {
		if strings.Contains(strings.ToLower(info.CommandLine), needle) {
			log.Debug("waiting on delegated uninstaller", "pid", info.PID)
			if err := t.sys.WaitExit(ctx, info.PID); err != nil {
				return fmt.Errorf("wait for delegate %d: %w", info.PID, err)
			}
			return nil
		}
	}

	// No delegate left running; the uninstaller already finished.
	return nil
}
