package cleanup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driversweep/driversweep/internal/config"
)

// DumpAll writes every module's screened inventory snapshot under
// <workdir>/dumps. A failing module is reported and the rest still dump.
func DumpAll(modules []*Module, state *config.State) {
	fmt.Printf("\nDumping into %s...\n", filepath.Join(state.WorkDir, "dumps"))

	for _, module := range modules {
		if module.Dump == nil {
			continue
		}
		if err := module.Dump(state); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", module.Name, err)
		}
	}
}

// writeDump pretty-prints objects into <workdir>/dumps/<filename>.
func writeDump(state *config.State, filename, noun string, objects any, count int) error {
	if count == 0 {
		fmt.Printf("No %s to dump\n", noun)
		return nil
	}

	dir := filepath.Join(state.WorkDir, "dumps")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	data, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", noun, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	if count == 1 {
		noun = singularNoun(noun)
		fmt.Printf("Dumped 1 %s to '%s'\n", noun, filename)
	} else {
		fmt.Printf("Dumped %d %s to '%s'\n", count, noun, filename)
	}
	return nil
}

func singularNoun(noun string) string {
	if len(noun) > 1 && noun[len(noun)-1] == 's' {
		return noun[:len(noun)-1]
	}
	return noun
}
