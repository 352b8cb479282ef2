package rules

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/driversweep/driversweep/internal/inventory"
)

func strptr(s string) *string { return &s }

var hidClass = uuid.MustParse("745a17a0-74d3-11d0-b6fe-00a0c90f57da")

func testDevice() inventory.Device {
	return inventory.Device{
		InstanceID:   `HID\VID_056A&PID_033B\7&2bb&0`,
		Description:  "Wacom Tablet",
		Manufacturer: "Wacom Technology",
		ClassGUID:    hidClass,
		HardwareIDs:  []string{`HID\VID_056A&PID_033B`, `HID\VID_056A`},
	}
}

func TestWildcardRuleMatchesEverythingOfItsKind(t *testing.T) {
	rule := DeviceRule{FriendlyName: "anything"}

	ok, err := rule.Matches(testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("rule with no constraints should match any device")
	}

	ok, err = rule.Matches(inventory.Device{InstanceID: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("wildcard should match a device with no attributes at all")
	}
}

func TestRuleNeverMatchesOtherKinds(t *testing.T) {
	rule := DeviceRule{FriendlyName: "anything"}

	ok, err := rule.Matches(inventory.DriverPackage{KeyName: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("device rule must not match a driver package")
	}
}

func TestClassGUIDConstraintIsExact(t *testing.T) {
	other := uuid.MustParse("4d36e96f-e325-11ce-bfc1-08002be10318")
	rule := DeviceRule{
		FriendlyName: "wrong class",
		Manufacturer: strptr("Wacom"),
		ClassGUID:    &other,
	}

	ok, err := rule.Matches(testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("class constraint must fail on a different class GUID even when patterns match")
	}

	rule.ClassGUID = &hidClass
	ok, err = rule.Matches(testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("matching class GUID should pass")
	}
}

func TestFirstMatchWins(t *testing.T) {
	first := DeviceRule{FriendlyName: "specific", Manufacturer: strptr("Wacom")}
	second := DeviceRule{FriendlyName: "general"}

	matched, err := Match([]Rule{first, second}, testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if matched == nil || matched.Name() != "specific" {
		t.Errorf("expected first matching rule, got %v", matched)
	}
}

func TestMatchReturnsNilWhenNothingMatches(t *testing.T) {
	rule := DeviceRule{FriendlyName: "other vendor", Manufacturer: strptr("Logitech")}

	matched, err := Match([]Rule{rule}, testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if matched != nil {
		t.Errorf("expected no match, got %q", matched.Name())
	}
}

func TestHardwareIDMatchesAnyCandidate(t *testing.T) {
	rule := DeviceRule{FriendlyName: "by hwid", HardwareID: strptr(`HID\\VID_056A$`)}

	ok, err := rule.Matches(testDevice())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("pattern should be satisfied by the second hardware id")
	}
}

func TestAbsentAttributeMatchesAsEmptyString(t *testing.T) {
	// A pattern that matches the empty string matches a missing attribute.
	rule := DeviceRule{FriendlyName: "empty ok", Manufacturer: strptr("^$")}
	ok, err := rule.Matches(inventory.Device{InstanceID: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("^$ should match an absent manufacturer")
	}

	// A non-empty pattern does not.
	rule = DeviceRule{FriendlyName: "vendor", Manufacturer: strptr("Wacom")}
	ok, err = rule.Matches(inventory.Device{InstanceID: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("vendor pattern should not match an absent manufacturer")
	}
}

func TestMatchingIsCaseInsensitiveAndUnanchored(t *testing.T) {
	rule := PackageRule{
		FriendlyName:    "huion",
		DisplayName:     strptr("huion ?tablet"),
		UninstallMethod: MethodDeferred,
	}
	pkg := inventory.DriverPackage{
		KeyName:     "HuionTablet_is1",
		DisplayName: "Huion Tablet v15.7.3",
	}

	ok, err := rule.Matches(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("pattern should match case-insensitively anywhere in the value")
	}
}

func TestDriverRuleMatchesStoreEntry(t *testing.T) {
	rule := DriverRule{
		FriendlyName: "wacom driver",
		OriginalName: strptr(`wacom.*\.inf`),
		Provider:     strptr("Wacom"),
	}
	driver := inventory.Driver{
		InfName:         "oem42.inf",
		InfOriginalName: "wacompen.inf",
		Provider:        "Wacom Technology",
		ClassGUID:       hidClass,
	}

	ok, err := rule.Matches(driver)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected driver rule to match")
	}
}

func TestMalformedPatternSurfacesError(t *testing.T) {
	rule := DeviceRule{FriendlyName: "broken", Manufacturer: strptr("(unclosed")}

	_, err := rule.Matches(testDevice())
	if err == nil {
		t.Fatal("expected a pattern error")
	}
	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("expected *PatternError, got %T: %v", err, err)
	}
}
