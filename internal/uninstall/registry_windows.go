//go:build windows

package uninstall

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/driversweep/driversweep/internal/inventory"
)

const uninstallKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

// deleteUninstallKey removes a stale uninstall list entry without launching
// anything. The registry view follows the package's bitness.
func deleteUninstallKey(pkg inventory.DriverPackage) error {
	view := uint32(registry.WOW64_64KEY)
	if pkg.X86 {
		view = registry.WOW64_32KEY
	}

	base, err := registry.OpenKey(registry.LOCAL_MACHINE, uninstallKeyPath,
		registry.READ|registry.WRITE|view)
	if err != nil {
		return fmt.Errorf("open uninstall key: %w", err)
	}
	defer base.Close()

	if err := deleteKeyTree(base, pkg.KeyName, view); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return &AlreadyRemovedError{Target: pkg.Label()}
		}
		return fmt.Errorf("delete uninstall entry %s: %w", pkg.KeyName, err)
	}
	return nil
}

func deleteKeyTree(parent registry.Key, name string, view uint32) error {
	key, err := registry.OpenKey(parent, name, registry.READ|registry.WRITE|view)
	if err != nil {
		return err
	}

	subkeys, err := key.ReadSubKeyNames(-1)
	if err != nil {
		key.Close()
		return err
	}
	for _, subkey := range subkeys {
		if err := deleteKeyTree(key, subkey, view); err != nil {
			key.Close()
			return err
		}
	}
	key.Close()

	return registry.DeleteKey(parent, name)
}
