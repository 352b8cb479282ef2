package cleanup

import (
	"context"
	"regexp"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/rules"
)

var oemInfPattern = regexp.MustCompile(`(?i)^oem\d+\.inf$`)

// DeviceModule removes matched PnP device instances.
func DeviceModule(provider inventory.Provider) *Module {
	return &Module{
		Name:     "Device Cleanup",
		CLIName:  "device-cleanup",
		Help:     "remove devices from the system",
		Noun:     "devices",
		Category: rules.Devices,
		Objects: func() ([]inventory.Object, error) {
			devices, err := provider.Devices()
			if err != nil {
				return nil, err
			}
			objects := make([]inventory.Object, len(devices))
			for i, device := range devices {
				objects[i] = device
			}
			return objects, nil
		},
		Remove: func(_ context.Context, _ *config.State, obj inventory.Object, _ rules.Rule, info *RunInfo) error {
			device := obj.(inventory.Device)
			reboot, err := inventory.RemoveDevice(device.InstanceID)
			if err != nil {
				return err
			}
			if reboot {
				info.RebootRequired = true
			}
			return nil
		},
		Dump: func(state *config.State) error {
			devices, err := provider.Devices()
			if err != nil {
				return err
			}
			var dump []inventory.Device
			for _, device := range devices {
				if !oemInfPattern.MatchString(device.InfName) {
					continue
				}
				candidates := append([]string{
					device.Description,
					device.Manufacturer,
					device.InfName,
				}, device.HardwareIDs...)
				if ofInterest(candidates...) {
					dump = append(dump, device)
				}
			}
			return writeDump(state, "devices.json", "devices", dump, len(dump))
		},
	}
}
