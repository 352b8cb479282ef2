// Package inventory takes structured snapshots of the host's devices,
// driver-store drivers, and installed driver software packages, and exposes
// the removal primitives the cleanup modules run against them.
package inventory

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnsupported is returned by providers on platforms without a native
// device stack. The CLI builds everywhere; only Windows has an inventory.
var ErrUnsupported = errors.New("inventory: not supported on this platform")

// Kind tags the closed set of inventory object shapes.
type Kind int

const (
	KindDevice Kind = iota
	KindDriver
	KindDriverPackage
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindDriver:
		return "driver"
	case KindDriverPackage:
		return "driver package"
	default:
		return "unknown"
	}
}

// Object is one inventory record. The concrete type is always one of
// Device, Driver, or DriverPackage; consumers dispatch by type switch.
type Object interface {
	Kind() Kind
	// Label is the human-readable identity used in prompts and logs.
	Label() string
}

// Device is a present PnP device instance.
type Device struct {
	InstanceID   string    `json:"instanceId"`
	Description  string    `json:"description,omitempty"`
	FriendlyName string    `json:"friendlyName,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	ClassName    string    `json:"className,omitempty"`
	ClassGUID    uuid.UUID `json:"classGuid"`
	HardwareIDs  []string  `json:"hardwareIds,omitempty"`
	InfName      string    `json:"infName,omitempty"` // driver-store file, e.g. oem42.inf
}

func (Device) Kind() Kind { return KindDevice }

func (d Device) Label() string {
	name := d.FriendlyName
	if name == "" {
		name = d.Description
	}
	if name == "" {
		return d.InstanceID
	}
	return name + " (" + d.InstanceID + ")"
}

// Driver is a third-party driver package in the driver store.
type Driver struct {
	InfName         string    `json:"infName"` // store name, e.g. oem42.inf
	InfOriginalName string    `json:"infOriginalName,omitempty"`
	StoreLocation   string    `json:"storeLocation,omitempty"`
	Provider        string    `json:"provider,omitempty"`
	ClassName       string    `json:"className,omitempty"`
	ClassGUID       uuid.UUID `json:"classGuid"`
}

func (Driver) Kind() Kind { return KindDriver }

func (d Driver) Label() string {
	if d.InfOriginalName != "" {
		return d.InfName + " (" + d.InfOriginalName + ")"
	}
	return d.InfName
}

// DriverPackage is one entry of the Windows uninstall list.
type DriverPackage struct {
	X86             bool   `json:"x86"` // true when read from the 32-bit registry view
	KeyName         string `json:"keyName"`
	DisplayName     string `json:"displayName,omitempty"`
	DisplayVersion  string `json:"displayVersion,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	InstallLocation string `json:"installLocation,omitempty"`
	UninstallString string `json:"uninstallString,omitempty"`
}

func (DriverPackage) Kind() Kind { return KindDriverPackage }

func (p DriverPackage) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.KeyName
}

// Provider takes the immutable inventory snapshots a run works from.
type Provider interface {
	Devices() ([]Device, error)
	Drivers() ([]Driver, error)
	DriverPackages() ([]DriverPackage, error)
}
