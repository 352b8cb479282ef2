//go:build !windows

package inventory

type systemProvider struct{}

// NewProvider returns a provider that reports the platform as unsupported.
// Only Windows has a device stack to sweep; other builds exist so the CLI,
// rules, and tests stay portable.
func NewProvider() Provider {
	return systemProvider{}
}

func (systemProvider) Devices() ([]Device, error)               { return nil, ErrUnsupported }
func (systemProvider) Drivers() ([]Driver, error)               { return nil, ErrUnsupported }
func (systemProvider) DriverPackages() ([]DriverPackage, error) { return nil, ErrUnsupported }

// RemoveDevice is a stub off Windows.
func RemoveDevice(instanceID string) (bool, error) { return false, ErrUnsupported }

// RemoveDriver is a stub off Windows.
func RemoveDriver(driver Driver) (bool, error) { return false, ErrUnsupported }
