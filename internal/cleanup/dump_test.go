package cleanup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/driversweep/driversweep/internal/inventory"
)

func TestWriteDump(t *testing.T) {
	state := newTestState(t)
	devices := []inventory.Device{{InstanceID: "A", Manufacturer: "Wacom"}}

	if err := writeDump(state, "devices.json", "devices", devices, len(devices)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(state.WorkDir, "dumps", "devices.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []inventory.Device
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].InstanceID != "A" {
		t.Errorf("unexpected dump content: %v", decoded)
	}
}

func TestWriteDumpNothingToDump(t *testing.T) {
	state := newTestState(t)

	if err := writeDump(state, "devices.json", "devices", nil, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(state.WorkDir, "dumps")); !os.IsNotExist(err) {
		t.Error("an empty dump must not create the dumps directory")
	}
}
