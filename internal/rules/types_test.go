package rules

import (
	"strings"
	"testing"
)

func TestParsePackageRules(t *testing.T) {
	data := []byte(`[
		{"friendlyName": "Huion Tablet Software", "displayName": "Huion ?Tablet", "uninstallMethod": "deferred"},
		{"friendlyName": "Stale Entry", "displayName": "Wacom", "uninstallMethod": "registry_only"}
	]`)

	ruleSet, err := parsePackageRules(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(ruleSet) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(ruleSet))
	}
	pkg := ruleSet[1].(PackageRule)
	if pkg.UninstallMethod != MethodRegistryOnly {
		t.Errorf("uninstallMethod = %q, want registry_only", pkg.UninstallMethod)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	data := []byte(`[{"friendlyName": "x", "displyName": "typo", "uninstallMethod": "normal"}]`)

	_, err := parsePackageRules(data)
	if err == nil {
		t.Fatal("unknown field should be a parse error, not a silent wildcard")
	}
	if !strings.Contains(err.Error(), "displyName") {
		t.Errorf("error should name the unknown field: %v", err)
	}
}

func TestParseRejectsUnknownUninstallMethod(t *testing.T) {
	data := []byte(`[{"friendlyName": "x", "uninstallMethod": "forcibly"}]`)

	if _, err := parsePackageRules(data); err == nil {
		t.Fatal("unknown uninstallMethod should fail to parse")
	}
}

func TestParseRequiresFriendlyName(t *testing.T) {
	if _, err := parseDeviceRules([]byte(`[{"manufacturer": "Wacom"}]`)); err == nil {
		t.Fatal("device rule without friendlyName should be rejected")
	}
	if _, err := parsePackageRules([]byte(`[{"friendlyName": "x"}]`)); err == nil {
		t.Fatal("package rule without uninstallMethod should be rejected")
	}
}

func TestEmbeddedRuleSetsParse(t *testing.T) {
	categories := []Category{Devices, Drivers, Packages}
	for _, category := range categories {
		data, err := embedded.ReadFile("config/" + category.File)
		if err != nil {
			t.Fatalf("embedded %s missing: %v", category.File, err)
		}
		ruleSet, err := category.parse(data)
		if err != nil {
			t.Fatalf("embedded %s does not parse: %v", category.File, err)
		}
		if len(ruleSet) == 0 {
			t.Errorf("embedded %s is empty", category.File)
		}
	}
}

func TestEmbeddedPatternsCompile(t *testing.T) {
	data, err := embedded.ReadFile("config/" + Devices.File)
	if err != nil {
		t.Fatal(err)
	}
	ruleSet, err := Devices.parse(data)
	if err != nil {
		t.Fatal(err)
	}
	for _, rule := range ruleSet {
		dev := rule.(DeviceRule)
		for _, p := range []*string{dev.DeviceDesc, dev.Manufacturer, dev.HardwareID} {
			if p == nil {
				continue
			}
			if _, err := cache.get(*p); err != nil {
				t.Errorf("rule %q: %v", rule.Name(), err)
			}
		}
	}
}
