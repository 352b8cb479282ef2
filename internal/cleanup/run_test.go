package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/rules"
	"github.com/driversweep/driversweep/internal/terminal"
	"github.com/driversweep/driversweep/internal/uninstall"
)

func newTestState(t *testing.T) *config.State {
	t.Helper()
	return &config.State{
		WorkDir:  t.TempDir(),
		UseCache: true,
		Settings: config.Default(),
	}
}

// seedRules plants a rule file in the local cache so Resolve never needs
// the network or the embedded defaults.
func seedRules(t *testing.T, state *config.State, file, content string) {
	t.Helper()
	dir := filepath.Join(state.WorkDir, "config")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testDevices() []inventory.Object {
	return []inventory.Object{
		inventory.Device{InstanceID: "A", Manufacturer: "Wacom Technology"},
		inventory.Device{InstanceID: "B", Manufacturer: "Wacom Technology"},
	}
}

// testModule pairs a fixed object list with a scripted removal.
func testModule(objects []inventory.Object, remove RemoveFunc) *Module {
	return &Module{
		Name:     "Device Cleanup",
		Noun:     "devices",
		Category: rules.Devices,
		Objects:  func() ([]inventory.Object, error) { return objects, nil },
		Remove:   remove,
	}
}

func TestRunRebootRequirementIsSticky(t *testing.T) {
	state := newTestState(t)
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	calls := 0
	module := testModule(testDevices(), func(_ context.Context, _ *config.State, _ inventory.Object, _ rules.Rule, info *RunInfo) error {
		calls++
		// Only the first removal wants a reboot.
		if calls == 1 {
			info.RebootRequired = true
		}
		return nil
	})

	info, err := Run(context.Background(), module, state, nil)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 removals, got %d", calls)
	}
	if !info.RebootRequired {
		t.Error("reboot requirement must stay set after later removals that do not need one")
	}
}

func TestRunAlreadyRemovedIsBenign(t *testing.T) {
	state := newTestState(t)
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	calls := 0
	module := testModule(testDevices(), func(_ context.Context, _ *config.State, obj inventory.Object, _ rules.Rule, _ *RunInfo) error {
		calls++
		if calls == 1 {
			return &uninstall.AlreadyRemovedError{Target: obj.Label()}
		}
		return nil
	})

	if _, err := Run(context.Background(), module, state, nil); err != nil {
		t.Fatalf("already-removed must not abort the run: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected the run to continue past the benign skip, got %d removals", calls)
	}
}

func TestRunOtherErrorsAbort(t *testing.T) {
	state := newTestState(t)
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	boom := errors.New("access denied")
	calls := 0
	module := testModule(testDevices(), func(context.Context, *config.State, inventory.Object, rules.Rule, *RunInfo) error {
		calls++
		return boom
	})

	_, err := Run(context.Background(), module, state, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the removal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("the run must stop at the first real failure, got %d removals", calls)
	}
}

func TestRunNoMatches(t *testing.T) {
	state := newTestState(t)
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "other vendor", "manufacturer": "Logitech"}]`)

	module := testModule(testDevices(), func(context.Context, *config.State, inventory.Object, rules.Rule, *RunInfo) error {
		t.Fatal("nothing should be removed")
		return nil
	})

	if _, err := Run(context.Background(), module, state, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRunPromptCancelEndsRun(t *testing.T) {
	state := newTestState(t)
	state.Interactive = true
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	module := testModule(testDevices(), func(context.Context, *config.State, inventory.Object, rules.Rule, *RunInfo) error {
		t.Fatal("a cancelled run must not remove anything")
		return nil
	})
	prompt := func(context.Context, string) (terminal.Decision, error) {
		return terminal.DecisionCancel, nil
	}

	_, err := Run(context.Background(), module, state, prompt)
	if !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
}

func TestRunPromptNoSkipsObject(t *testing.T) {
	state := newTestState(t)
	state.Interactive = true
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	var removed []string
	module := testModule(testDevices(), func(_ context.Context, _ *config.State, obj inventory.Object, _ rules.Rule, _ *RunInfo) error {
		removed = append(removed, obj.(inventory.Device).InstanceID)
		return nil
	})

	answers := []terminal.Decision{terminal.DecisionNo, terminal.DecisionYes}
	prompt := func(context.Context, string) (terminal.Decision, error) {
		answer := answers[0]
		answers = answers[1:]
		return answer, nil
	}

	if _, err := Run(context.Background(), module, state, prompt); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(removed) != "[B]" {
		t.Errorf("expected only the confirmed object removed, got %v", removed)
	}
}

func TestRunDryRunRemovesNothingAndAsksNothing(t *testing.T) {
	state := newTestState(t)
	state.Interactive = true
	state.DryRun = true
	seedRules(t, state, rules.Devices.File, `[{"friendlyName": "everything"}]`)

	module := testModule(testDevices(), func(context.Context, *config.State, inventory.Object, rules.Rule, *RunInfo) error {
		t.Fatal("dry run must not remove")
		return nil
	})
	prompt := func(context.Context, string) (terminal.Decision, error) {
		t.Fatal("dry run must not prompt")
		return terminal.DecisionYes, nil
	}

	if _, err := Run(context.Background(), module, state, prompt); err != nil {
		t.Fatal(err)
	}
}
