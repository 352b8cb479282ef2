// Package cleanup runs the rule-driven removal passes: enumerate objects,
// match them against the resolved rule set, and remove the matches under
// operator supervision.
package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/logging"
	"github.com/driversweep/driversweep/internal/rules"
	"github.com/driversweep/driversweep/internal/terminal"
	"github.com/driversweep/driversweep/internal/uninstall"
)

var log = logging.L("cleanup")

// ErrUserCancelled ends the run at the operator's request. It is not a
// failure; main maps it to a clean exit.
var ErrUserCancelled = errors.New("cancelled by user")

// RunInfo accumulates run-wide outcomes. RebootRequired stays set once any
// removal in the run reports it.
type RunInfo struct {
	RebootRequired bool
}

// Prompter asks the operator to confirm one removal.
type Prompter func(ctx context.Context, label string) (terminal.Decision, error)

// RemoveFunc removes one matched object. Reboot demands go into info.
type RemoveFunc func(ctx context.Context, state *config.State, obj inventory.Object, rule rules.Rule, info *RunInfo) error

// Module is one cleanup pass over one kind of object.
type Module struct {
	Name     string
	CLIName  string
	Help     string
	Noun     string
	Category rules.Category
	Objects  func() ([]inventory.Object, error)
	Remove   RemoveFunc
	Dump     func(state *config.State) error
}

// Run executes one module: resolve its rule set, snapshot the inventory,
// and walk the objects in enumeration order. A rule match is skipped or
// confirmed per the operator's answer; an already-removed object is logged
// and skipped; any other removal error aborts the run.
func Run(ctx context.Context, module *Module, state *config.State, prompt Prompter) (RunInfo, error) {
	var info RunInfo

	ruleSet, err := rules.Resolve(ctx, module.Category, state)
	if err != nil {
		return info, fmt.Errorf("%s: %w", module.Name, err)
	}

	objects, err := module.Objects()
	if err != nil {
		return info, fmt.Errorf("%s: %w", module.Name, err)
	}

	found := false
	for _, obj := range objects {
		rule, err := rules.Match(ruleSet, obj)
		if err != nil {
			return info, fmt.Errorf("%s: match %s: %w", module.Name, obj.Label(), err)
		}
		if rule == nil {
			continue
		}
		found = true

		if state.Interactive && !state.DryRun && prompt != nil {
			decision, err := prompt(ctx, fmt.Sprintf("Uninstall '%s'?", rule.Name()))
			if err != nil {
				return info, err
			}
			switch decision {
			case terminal.DecisionNo:
				fmt.Printf("Skipping '%s'...\n", rule.Name())
				continue
			case terminal.DecisionCancel:
				fmt.Println("Aborting...")
				return info, ErrUserCancelled
			}
		}

		fmt.Printf("Uninstalling '%s'...\n", rule.Name())
		if state.DryRun {
			continue
		}

		if err := module.Remove(ctx, state, obj, rule, &info); err != nil {
			var already *uninstall.AlreadyRemovedError
			if errors.As(err, &already) {
				log.Info("already uninstalled",
					logging.KeyModule, module.Name,
					logging.KeyObject, obj.Label())
				continue
			}
			return info, fmt.Errorf("%s: %s: %w", module.Name, rule.Name(), err)
		}
	}

	if !found {
		fmt.Printf("No %s to uninstall is found.\n", module.Noun)
	}

	return info, nil
}
