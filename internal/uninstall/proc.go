package uninstall

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is one row of a full process-table snapshot.
type ProcessInfo struct {
	PID         int32
	ParentPID   int32
	CommandLine string
}

// System is the process-control surface the strategies run against. The
// host implementation launches and tracks real processes; tests substitute
// a scripted one.
type System interface {
	// Launch starts the command and returns its pid without waiting on it.
	Launch(cmd Command) (int32, error)
	// WaitExit blocks until the process is gone or ctx is cancelled.
	WaitExit(ctx context.Context, pid int32) error
	// Children returns the direct child pids of pid.
	Children(pid int32) ([]int32, error)
	// Snapshot returns the current process table with command lines.
	Snapshot(ctx context.Context) ([]ProcessInfo, error)
}

const exitPollInterval = 20 * time.Millisecond

type hostSystem struct{}

func (hostSystem) Launch(cmd Command) (int32, error) {
	c := exec.Command(cmd.Path, cmd.ArgList()...)
	if err := c.Start(); err != nil {
		return 0, err
	}
	pid := int32(c.Process.Pid)
	// The process is tracked by pid from here on. Uninstallers routinely
	// re-parent themselves, so an exec.Cmd Wait would not see the real end.
	c.Process.Release()
	return pid, nil
}

func (hostSystem) WaitExit(ctx context.Context, pid int32) error {
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()
	for {
		alive, err := process.PidExistsWithContext(ctx, pid)
		if err != nil {
			return err
		}
		if !alive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (hostSystem) Children(pid int32) ([]int32, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		// Already exited; nothing left to discover.
		return nil, nil
	}
	kids, err := proc.Children()
	if err != nil {
		if errors.Is(err, process.ErrorNoChildren) {
			return nil, nil
		}
		return nil, err
	}
	pids := make([]int32, 0, len(kids))
	for _, kid := range kids {
		pids = append(pids, kid.Pid)
	}
	return pids, nil
}
