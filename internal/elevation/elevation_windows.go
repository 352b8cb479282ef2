//go:build windows

// Package elevation reports whether the process runs with administrative
// rights. Device and driver removal fail without them.
package elevation

import "golang.org/x/sys/windows"

// IsElevated reports whether the process token carries elevation.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
