//go:build windows

package inventory

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	newdev                        = windows.NewLazySystemDLL("newdev.dll")
	procDiUninstallDevice         = newdev.NewProc("DiUninstallDevice")
	procDiUninstallDriver         = newdev.NewProc("DiUninstallDriverW")
	procSetupDiCreateDeviceInfoL  = setupapi.NewProc("SetupDiCreateDeviceInfoList")
	procSetupDiOpenDeviceInfo     = setupapi.NewProc("SetupDiOpenDeviceInfoW")
	procSetupDiDestroyDeviceInfoL = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const invalidHandleValue = ^uintptr(0)

type spDevinfoData struct {
	cbSize    uint32
	classGuid [16]byte
	devInst   uint32
	reserved  uintptr
}

// RemoveDevice uninstalls the device instance from the system. The returned
// flag reports whether Windows wants a reboot to finish the removal.
func RemoveDevice(instanceID string) (rebootRequired bool, err error) {
	infoSet, _, callErr := procSetupDiCreateDeviceInfoL.Call(0, 0)
	if infoSet == invalidHandleValue {
		return false, fmt.Errorf("create device info list: %w", callErr)
	}
	defer procSetupDiDestroyDeviceInfoL.Call(infoSet)

	id, err := windows.UTF16PtrFromString(instanceID)
	if err != nil {
		return false, err
	}

	data := spDevinfoData{}
	data.cbSize = uint32(unsafe.Sizeof(data))
	ret, _, callErr := procSetupDiOpenDeviceInfo.Call(
		infoSet,
		uintptr(unsafe.Pointer(id)),
		0, 0,
		uintptr(unsafe.Pointer(&data)),
	)
	if ret == 0 {
		return false, fmt.Errorf("open device info for %s: %w", instanceID, callErr)
	}

	var reboot int32
	ret, _, callErr = procDiUninstallDevice.Call(
		0,
		infoSet,
		uintptr(unsafe.Pointer(&data)),
		0,
		uintptr(unsafe.Pointer(&reboot)),
	)
	if ret == 0 {
		return false, fmt.Errorf("uninstall device %s: %w", instanceID, callErr)
	}

	return reboot != 0, nil
}

// RemoveDriver uninstalls a driver-store package given its store location
// and original inf name.
func RemoveDriver(driver Driver) (rebootRequired bool, err error) {
	if driver.StoreLocation == "" || driver.InfOriginalName == "" {
		return false, fmt.Errorf("driver %s has no resolved store location", driver.InfName)
	}
	infPath := filepath.Join(driver.StoreLocation, driver.InfOriginalName)

	path, err := windows.UTF16PtrFromString(infPath)
	if err != nil {
		return false, err
	}

	var reboot int32
	ret, _, callErr := procDiUninstallDriver.Call(
		0,
		uintptr(unsafe.Pointer(path)),
		0,
		uintptr(unsafe.Pointer(&reboot)),
	)
	if ret == 0 {
		return false, fmt.Errorf("uninstall driver %s: %w", infPath, callErr)
	}

	return reboot != 0, nil
}
