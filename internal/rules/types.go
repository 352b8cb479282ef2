// Package rules loads and evaluates the declarative uninstall rule sets.
// Rule sets are ordered; matching is first-match-wins, so rule authors put
// specific rules before general ones.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/driversweep/driversweep/internal/inventory"
)

// UninstallMethod selects the removal strategy for a driver package rule.
type UninstallMethod string

const (
	MethodNormal       UninstallMethod = "normal"
	MethodDeferred     UninstallMethod = "deferred"
	MethodRegistryOnly UninstallMethod = "registry_only"
)

func (m *UninstallMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch UninstallMethod(s) {
	case MethodNormal, MethodDeferred, MethodRegistryOnly:
		*m = UninstallMethod(s)
		return nil
	default:
		return fmt.Errorf("unknown uninstallMethod %q", s)
	}
}

// Rule is one uninstall rule. The concrete type mirrors the inventory
// object kinds; a rule only ever matches objects of its own kind.
type Rule interface {
	// Name is the rule's human-readable label.
	Name() string
	// Matches reports whether the rule's constraints are satisfied by the
	// object. Pattern compilation errors surface here, at first use.
	Matches(obj inventory.Object) (bool, error)
}

// Match evaluates a rule set against one object and returns the first
// matching rule, or nil when no rule matches.
func Match(ruleSet []Rule, obj inventory.Object) (Rule, error) {
	for _, rule := range ruleSet {
		ok, err := rule.Matches(obj)
		if err != nil {
			return nil, err
		}
		if ok {
			return rule, nil
		}
	}
	return nil, nil
}

// DeviceRule matches present device instances.
type DeviceRule struct {
	FriendlyName string     `json:"friendlyName"`
	DeviceDesc   *string    `json:"deviceDesc,omitempty"`
	Manufacturer *string    `json:"manufacturer,omitempty"`
	HardwareID   *string    `json:"hardwareId,omitempty"`
	ClassGUID    *uuid.UUID `json:"classGuid,omitempty"`
}

func (r DeviceRule) Name() string { return r.FriendlyName }

func (r DeviceRule) Matches(obj inventory.Object) (bool, error) {
	device, ok := obj.(inventory.Device)
	if !ok {
		return false, nil
	}
	if r.ClassGUID != nil && *r.ClassGUID != device.ClassGUID {
		return false, nil
	}
	if ok, err := matchPattern(r.DeviceDesc, device.Description); !ok || err != nil {
		return false, err
	}
	if ok, err := matchPattern(r.Manufacturer, device.Manufacturer); !ok || err != nil {
		return false, err
	}
	return matchAny(r.HardwareID, device.HardwareIDs)
}

// DriverRule matches driver-store entries.
type DriverRule struct {
	FriendlyName string     `json:"friendlyName"`
	OriginalName *string    `json:"originalName,omitempty"`
	Provider     *string    `json:"provider,omitempty"`
	ClassGUID    *uuid.UUID `json:"classGuid,omitempty"`
}

func (r DriverRule) Name() string { return r.FriendlyName }

func (r DriverRule) Matches(obj inventory.Object) (bool, error) {
	driver, ok := obj.(inventory.Driver)
	if !ok {
		return false, nil
	}
	if r.ClassGUID != nil && *r.ClassGUID != driver.ClassGUID {
		return false, nil
	}
	if ok, err := matchPattern(r.OriginalName, driver.InfOriginalName); !ok || err != nil {
		return false, err
	}
	return matchPattern(r.Provider, driver.Provider)
}

// PackageRule matches uninstall-list entries and carries the removal
// strategy for whatever it matches.
type PackageRule struct {
	FriendlyName    string          `json:"friendlyName"`
	DisplayName     *string         `json:"displayName,omitempty"`
	DisplayVersion  *string         `json:"displayVersion,omitempty"`
	Publisher       *string         `json:"publisher,omitempty"`
	UninstallMethod UninstallMethod `json:"uninstallMethod"`
}

func (r PackageRule) Name() string { return r.FriendlyName }

func (r PackageRule) Matches(obj inventory.Object) (bool, error) {
	pkg, ok := obj.(inventory.DriverPackage)
	if !ok {
		return false, nil
	}
	if ok, err := matchPattern(r.DisplayName, pkg.DisplayName); !ok || err != nil {
		return false, err
	}
	if ok, err := matchPattern(r.DisplayVersion, pkg.DisplayVersion); !ok || err != nil {
		return false, err
	}
	return matchPattern(r.Publisher, pkg.Publisher)
}

func parseDeviceRules(data []byte) ([]Rule, error) {
	var raw []DeviceRule
	if err := decodeStrict(data, &raw); err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		if r.FriendlyName == "" {
			return nil, fmt.Errorf("device rule missing friendlyName")
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseDriverRules(data []byte) ([]Rule, error) {
	var raw []DriverRule
	if err := decodeStrict(data, &raw); err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		if r.FriendlyName == "" {
			return nil, fmt.Errorf("driver rule missing friendlyName")
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parsePackageRules(data []byte) ([]Rule, error) {
	var raw []PackageRule
	if err := decodeStrict(data, &raw); err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		if r.FriendlyName == "" {
			return nil, fmt.Errorf("package rule missing friendlyName")
		}
		if r.UninstallMethod == "" {
			return nil, fmt.Errorf("package rule %q missing uninstallMethod", r.FriendlyName)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// decodeStrict rejects unknown fields so typos in rule files fail loudly
// instead of silently widening a rule into a wildcard.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
