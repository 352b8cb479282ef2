//go:build windows

package inventory

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/google/uuid"
	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/driversweep/driversweep/internal/logging"
)

var log = logging.L("inventory")

// Registry paths of the uninstall list, per registry view.
const (
	uninstallPath    = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`
	uninstallPathX86 = `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`
)

type systemProvider struct{}

// NewProvider returns the live Windows inventory provider.
func NewProvider() Provider {
	return systemProvider{}
}

type win32PnPEntity struct {
	DeviceID     string
	Description  *string
	Manufacturer *string
	PNPClass     *string
	ClassGuid    *string
	HardwareID   *[]string
}

type win32PnPSignedDriver struct {
	DeviceID           *string
	InfName            *string
	DriverProviderName *string
	DeviceClass        *string
	ClassGuid          *string
}

func (systemProvider) Devices() ([]Device, error) {
	var entities []win32PnPEntity
	query := "SELECT DeviceID, Description, Manufacturer, PNPClass, ClassGuid, HardwareID FROM Win32_PnPEntity"
	if err := wmi.Query(query, &entities); err != nil {
		return nil, fmt.Errorf("query Win32_PnPEntity: %w", err)
	}

	infByDevice, err := infNamesByDevice()
	if err != nil {
		// Devices are still useful without driver association.
		log.Warn("driver association unavailable", "error", err)
		infByDevice = map[string]string{}
	}

	devices := make([]Device, 0, len(entities))
	for _, e := range entities {
		devices = append(devices, Device{
			InstanceID:   e.DeviceID,
			Description:  deref(e.Description),
			Manufacturer: deref(e.Manufacturer),
			ClassName:    deref(e.PNPClass),
			ClassGUID:    parseClassGUID(deref(e.ClassGuid)),
			HardwareIDs:  derefSlice(e.HardwareID),
			InfName:      infByDevice[strings.ToUpper(e.DeviceID)],
		})
	}

	return devices, nil
}

func (systemProvider) Drivers() ([]Driver, error) {
	var rows []win32PnPSignedDriver
	query := "SELECT DeviceID, InfName, DriverProviderName, DeviceClass, ClassGuid FROM Win32_PnPSignedDriver"
	if err := wmi.Query(query, &rows); err != nil {
		return nil, fmt.Errorf("query Win32_PnPSignedDriver: %w", err)
	}

	// One driver-store entry may back many devices; collapse by inf name.
	// Only third-party (oemN.inf) entries are of interest.
	seen := make(map[string]bool)
	var drivers []Driver
	for _, row := range rows {
		inf := deref(row.InfName)
		if inf == "" || !isOemInf(inf) || seen[strings.ToLower(inf)] {
			continue
		}
		seen[strings.ToLower(inf)] = true

		driver := Driver{
			InfName:   inf,
			Provider:  deref(row.DriverProviderName),
			ClassName: deref(row.DeviceClass),
			ClassGUID: parseClassGUID(deref(row.ClassGuid)),
		}
		if storePath, err := infDriverStoreLocation(inf); err == nil && storePath != "" {
			driver.InfOriginalName = filepath.Base(storePath)
			driver.StoreLocation = filepath.Dir(storePath)
		}
		drivers = append(drivers, driver)
	}

	return drivers, nil
}

func (systemProvider) DriverPackages() ([]DriverPackage, error) {
	packages, err := packagesFromRegistry(uninstallPath, false)
	if err != nil {
		// The 64-bit view must exist; its absence means enumeration failed.
		return nil, fmt.Errorf("open uninstall key: %w", err)
	}

	x86Packages, err := packagesFromRegistry(uninstallPathX86, true)
	if err == nil {
		packages = append(packages, x86Packages...)
	}

	return packages, nil
}

func packagesFromRegistry(path string, x86 bool) ([]DriverPackage, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.READ)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	subkeys, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var packages []DriverPackage
	for _, name := range subkeys {
		subkey, err := registry.OpenKey(key, name, registry.READ)
		if err != nil {
			// Some entries may not be accessible; keep going.
			continue
		}

		packages = append(packages, DriverPackage{
			X86:             x86,
			KeyName:         name,
			DisplayName:     readStringValue(subkey, "DisplayName"),
			DisplayVersion:  readStringValue(subkey, "DisplayVersion"),
			Publisher:       readStringValue(subkey, "Publisher"),
			InstallLocation: readStringValue(subkey, "InstallLocation"),
			UninstallString: readStringValue(subkey, "UninstallString"),
		})
		subkey.Close()
	}

	return packages, nil
}

func readStringValue(key registry.Key, name string) string {
	val, _, err := key.GetStringValue(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

func infNamesByDevice() (map[string]string, error) {
	var rows []win32PnPSignedDriver
	query := "SELECT DeviceID, InfName FROM Win32_PnPSignedDriver"
	if err := wmi.Query(query, &rows); err != nil {
		return nil, err
	}

	byDevice := make(map[string]string, len(rows))
	for _, row := range rows {
		id := deref(row.DeviceID)
		if id == "" {
			continue
		}
		byDevice[strings.ToUpper(id)] = deref(row.InfName)
	}
	return byDevice, nil
}

func isOemInf(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "oem") || !strings.HasSuffix(lower, ".inf") {
		return false
	}
	digits := lower[3 : len(lower)-4]
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseClassGUID(s string) uuid.UUID {
	id, err := uuid.Parse(strings.Trim(s, "{}"))
	if err != nil {
		return uuid.UUID{}
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefSlice(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

var (
	setupapi                      = windows.NewLazySystemDLL("setupapi.dll")
	procSetupGetInfDriverStoreLoc = setupapi.NewProc("SetupGetInfDriverStoreLocationW")
)

// infDriverStoreLocation resolves a published inf name (oemN.inf) to its
// full path inside the driver store.
func infDriverStoreLocation(infName string) (string, error) {
	name, err := windows.UTF16PtrFromString(infName)
	if err != nil {
		return "", err
	}

	buf := make([]uint16, windows.MAX_PATH)
	var required uint32
	ret, _, callErr := procSetupGetInfDriverStoreLoc.Call(
		uintptr(unsafe.Pointer(name)),
		0, 0,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&required)),
	)
	if ret == 0 {
		if errno, ok := callErr.(windows.Errno); ok && errno == windows.ERROR_INSUFFICIENT_BUFFER {
			buf = make([]uint16, required)
			ret, _, callErr = procSetupGetInfDriverStoreLoc.Call(
				uintptr(unsafe.Pointer(name)),
				0, 0,
				uintptr(unsafe.Pointer(&buf[0])),
				uintptr(len(buf)),
				uintptr(unsafe.Pointer(&required)),
			)
		}
		if ret == 0 {
			return "", fmt.Errorf("SetupGetInfDriverStoreLocationW(%s): %w", infName, callErr)
		}
	}

	return windows.UTF16ToString(buf), nil
}
