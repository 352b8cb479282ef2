//go:build windows

package uninstall

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type win32Process struct {
	ProcessId       uint32
	ParentProcessId uint32
	CommandLine     *string
}

func (hostSystem) Snapshot(_ context.Context) ([]ProcessInfo, error) {
	var rows []win32Process
	query := "SELECT ProcessId, ParentProcessId, CommandLine FROM Win32_Process"
	if err := wmi.Query(query, &rows); err != nil {
		return nil, fmt.Errorf("query Win32_Process: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(rows))
	for _, row := range rows {
		info := ProcessInfo{
			PID:       int32(row.ProcessId),
			ParentPID: int32(row.ParentProcessId),
		}
		if row.CommandLine != nil {
			info.CommandLine = *row.CommandLine
		}
		infos = append(infos, info)
	}
	return infos, nil
}
