package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/driversweep/driversweep/internal/cleanup"
	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/elevation"
	"github.com/driversweep/driversweep/internal/inventory"
	"github.com/driversweep/driversweep/internal/logging"
	"github.com/driversweep/driversweep/internal/terminal"
	"github.com/driversweep/driversweep/internal/uninstall"
)

var (
	version = "2.0.0"

	cfgFile  string
	dryRun   bool
	dumpMode bool
	noPrompt bool
	noCache  bool
	noUpdate bool

	provider = inventory.NewProvider()
	tracker  = uninstall.NewTracker(config.Default().DeferredSettle)

	// Package cleanup runs first: uninstallers need their devices and
	// drivers still present to remove everything they installed.
	modules = []*cleanup.Module{
		cleanup.PackageModule(provider, tracker),
		cleanup.DeviceModule(provider),
		cleanup.DriverModule(provider),
	}
	moduleDisabled = map[string]*bool{}
)

var rootCmd = &cobra.Command{
	Use:   "driversweep",
	Short: "Stale tablet driver cleanup",
	Long: `DriverSweep removes leftover graphics tablet drivers, devices, and driver
software packages that interfere with current installations.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DriverSweep v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is driversweep.yaml beside the binary)")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "report what would be removed without removing anything")
	rootCmd.Flags().BoolVarP(&dumpMode, "dump", "D", false, "dump the screened inventory to JSON files and exit")
	rootCmd.Flags().BoolVarP(&noPrompt, "no-prompt", "s", false, "run without prompts, assuming yes on every removal")
	rootCmd.Flags().BoolVarP(&noCache, "no-cache", "c", false, "ignore and do not write the local rule cache")
	rootCmd.Flags().BoolVarP(&noUpdate, "no-update", "u", false, "do not fetch rule updates")

	for _, module := range modules {
		moduleDisabled[module.CLIName] = rootCmd.Flags().Bool(
			"no-"+module.CLIName, false, "do not "+module.Help)
	}

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	state := config.NewState(settings, dryRun, noPrompt, noCache, noUpdate)
	initLogging(state)
	tracker.SetSettle(settings.DeferredSettle)

	fmt.Printf("DriverSweep v%s\n", version)

	if dumpMode {
		cleanup.DumpAll(enabledModules(), state)
		return nil
	}

	if !state.DryRun && !elevation.IsElevated() {
		fmt.Fprintln(os.Stderr, "This program must be run as administrator.")
		if state.Interactive {
			terminal.Pause("Press any key to exit...")
		}
		os.Exit(1)
	}

	if state.DryRun {
		fmt.Println("Running in dry run mode. No changes will be made.")
	}

	ctx := context.Background()
	var runInfo cleanup.RunInfo

	for _, module := range enabledModules() {
		fmt.Printf("\nRunning '%s'...\n", module.Name)

		info, err := cleanup.Run(ctx, module, state, prompter(state))
		if err != nil {
			if errors.Is(err, cleanup.ErrUserCancelled) {
				return nil
			}
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintf(os.Stderr, "\nErrors were encountered while running '%s'. Aborting!\n", module.Name)
			if state.Interactive {
				terminal.Pause("Press any key to exit...")
			}
			os.Exit(1)
		}
		if info.RebootRequired {
			runInfo.RebootRequired = true
		}
	}

	finish(state, runInfo)
	return nil
}

// initLogging routes logs to a rotating file beside the binary. Console
// output stays reserved for the interactive flow.
func initLogging(state *config.State) {
	settings := state.Settings
	writer, err := logging.NewRotatingWriter(
		filepath.Join(state.WorkDir, "driversweep.log"),
		settings.LogMaxSizeMB, settings.LogMaxBackups)
	if err != nil {
		logging.Init(settings.LogFormat, settings.LogLevel, nil)
		return
	}
	logging.Init(settings.LogFormat, settings.LogLevel, writer)
}

func enabledModules() []*cleanup.Module {
	var enabled []*cleanup.Module
	for _, module := range modules {
		if disabled := moduleDisabled[module.CLIName]; disabled != nil && *disabled {
			continue
		}
		enabled = append(enabled, module)
	}
	return enabled
}

func prompter(state *config.State) cleanup.Prompter {
	if !state.Interactive {
		return nil
	}
	return func(ctx context.Context, label string) (terminal.Decision, error) {
		return terminal.Confirm(ctx, label)
	}
}

func finish(state *config.State, info cleanup.RunInfo) {
	if info.RebootRequired {
		fmt.Println("\nReboot is required to complete the cleanup.")
		if !state.Interactive {
			return
		}

		fmt.Print("Press any key to reboot now, or press 'q' to cancel reboot... ")
		key, err := terminal.ReadKey(context.Background())
		fmt.Print("\r\n")
		if err == nil && (key == 'q' || key == 'Q') {
			fmt.Println("Reboot cancelled.")
			return
		}
		if err := exec.Command("shutdown", "/r", "/t", "0").Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start the reboot: %v\n", err)
		}
		return
	}

	if state.Interactive {
		terminal.Pause("\nCleanup complete. Press any key to exit... ")
	}
}
