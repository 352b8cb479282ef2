package cleanup

import (
	"context"
	"fmt"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/rules"
)

// DriverModule removes matched third-party drivers from the driver store.
func DriverModule(provider inventory.Provider) *Module {
	return &Module{
		Name:     "Driver Cleanup",
		CLIName:  "driver-cleanup",
		Help:     "uninstall device drivers from the system",
		Noun:     "drivers",
		Category: rules.Drivers,
		Objects: func() ([]inventory.Object, error) {
			drivers, err := provider.Drivers()
			if err != nil {
				return nil, err
			}
			objects := make([]inventory.Object, len(drivers))
			for i, driver := range drivers {
				objects[i] = driver
			}
			return objects, nil
		},
		Remove: func(_ context.Context, _ *config.State, obj inventory.Object, _ rules.Rule, info *RunInfo) error {
			driver := obj.(inventory.Driver)
			if driver.StoreLocation == "" || driver.InfOriginalName == "" {
				return fmt.Errorf("driver store location unknown for %s", driver.InfName)
			}
			reboot, err := inventory.RemoveDriver(driver)
			if err != nil {
				return err
			}
			if reboot {
				info.RebootRequired = true
			}
			return nil
		},
		Dump: func(state *config.State) error {
			drivers, err := provider.Drivers()
			if err != nil {
				return err
			}
			var dump []inventory.Driver
			for _, driver := range drivers {
				if ofInterest(driver.Provider, driver.InfOriginalName, driver.ClassName) {
					dump = append(dump, driver)
				}
			}
			return writeDump(state, "drivers.json", "drivers", dump, len(dump))
		},
	}
}
