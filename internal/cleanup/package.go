package cleanup

import (
	"context"
	"fmt"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/rules"
	"github.com/driversweep/driversweep/internal/terminal"
	"github.com/driversweep/driversweep/internal/uninstall"
)

// PackageModule uninstalls matched driver software packages through their
// own uninstallers, supervised by the tracker.
func PackageModule(provider inventory.Provider, tracker *uninstall.Tracker) *Module {
	return &Module{
		Name:     "Driver Package Cleanup",
		CLIName:  "driver-package-cleanup",
		Help:     "uninstall driver software packages",
		Noun:     "driver packages",
		Category: rules.Packages,
		Objects: func() ([]inventory.Object, error) {
			packages, err := provider.DriverPackages()
			if err != nil {
				return nil, err
			}
			objects := make([]inventory.Object, len(packages))
			for i, pkg := range packages {
				objects[i] = pkg
			}
			return objects, nil
		},
		Remove: func(ctx context.Context, state *config.State, obj inventory.Object, rule rules.Rule, _ *RunInfo) error {
			pkg := obj.(inventory.DriverPackage)
			pkgRule := rule.(rules.PackageRule)

			var override uninstall.OverrideWait
			if state.Interactive && pkgRule.UninstallMethod != rules.MethodRegistryOnly {
				override = func(ctx context.Context) error {
					fmt.Print("Complete the uninstall process. If this message is not gone after uninstall is complete, then press any key to continue... ")
					err := terminal.WaitForKey(ctx)
					if err == nil {
						fmt.Print("\r\n")
					}
					return err
				}
			}
			return tracker.Remove(ctx, pkg, pkgRule.UninstallMethod, override)
		},
		Dump: func(state *config.State) error {
			packages, err := provider.DriverPackages()
			if err != nil {
				return err
			}
			var dump []inventory.DriverPackage
			for _, pkg := range packages {
				if pkg.DisplayName == "" || pkg.UninstallString == "" {
					continue
				}
				if ofInterest(pkg.DisplayName, pkg.Publisher, pkg.UninstallString) {
					dump = append(dump, pkg)
				}
			}
			return writeDump(state, "driver-packages.json", "driver packages", dump, len(dump))
		},
	}
}
