//go:build !windows

package uninstall

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
)

func (hostSystem) Snapshot(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, proc := range procs {
		info := ProcessInfo{PID: proc.Pid}
		if ppid, err := proc.PpidWithContext(ctx); err == nil {
			info.ParentPID = ppid
		}
		if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
			info.CommandLine = cmdline
		}
		infos = append(infos, info)
	}
	return infos, nil
}
