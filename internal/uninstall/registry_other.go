//go:build !windows

package uninstall

import "github.com/driversweep/driversweep/internal/inventory"

func deleteUninstallKey(inventory.DriverPackage) error {
	return inventory.ErrUnsupported
}
