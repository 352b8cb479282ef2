package rules

import (
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/driversweep/driversweep/internal/config"
	"github.com/driversweep/driversweep/internal/logging"
)

var log = logging.L("rules")

//go:embed config/*.json
var embedded embed.FS

// Category names one rule-set file and how to parse it.
type Category struct {
	File  string
	parse func([]byte) ([]Rule, error)
}

var (
	Devices  = Category{File: "device_identifiers.json", parse: parseDeviceRules}
	Drivers  = Category{File: "driver_identifiers.json", parse: parseDriverRules}
	Packages = Category{File: "driver_package_identifiers.json", parse: parsePackageRules}
)

// ResolveError means every resolution tier failed for a category. The
// bundled fallback makes this rare; it indicates a broken build or an
// unreadable install directory.
type ResolveError struct {
	File  string
	Tiers []error
}

func (e *ResolveError) Error() string {
	msgs := make([]string, len(e.Tiers))
	for i, err := range e.Tiers {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("no source could provide rule set %q: %s", e.File, strings.Join(msgs, "; "))
}

// Resolve produces the rule set for a category by trying the local cache,
// the version-pinned remote source, and the embedded fallback, in that
// order. The first tier that yields content wins; its content must parse,
// or the whole resolution fails.
func Resolve(ctx context.Context, category Category, state *config.State) ([]Rule, error) {
	data, source, err := fetch(ctx, category.File, state)
	if err != nil {
		return nil, err
	}

	ruleSet, err := category.parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rule set %q from %s: %w", category.File, source, err)
	}

	log.Debug("resolved rule set", "file", category.File, "source", source, "rules", len(ruleSet))
	return ruleSet, nil
}

func fetch(ctx context.Context, file string, state *config.State) (data []byte, source string, err error) {
	var tiers []error

	if state.UseCache {
		data, err := os.ReadFile(filepath.Join(state.WorkDir, "config", file))
		if err == nil {
			return data, "cache", nil
		}
		log.Debug("rule cache miss", "file", file, "error", err)
		tiers = append(tiers, fmt.Errorf("cache: %w", err))
	} else {
		tiers = append(tiers, fmt.Errorf("cache: disabled"))
	}

	if state.AllowUpdates {
		data, err := fetchRemote(ctx, file, state)
		if err == nil {
			return data, "remote", nil
		}
		log.Debug("remote rule fetch failed", "file", file, "error", err)
		tiers = append(tiers, fmt.Errorf("remote: %w", err))
	} else {
		tiers = append(tiers, fmt.Errorf("remote: disabled"))
	}

	data, err = embedded.ReadFile("config/" + file)
	if err == nil {
		return data, "embedded", nil
	}
	tiers = append(tiers, fmt.Errorf("embedded: %w", err))

	return nil, "", &ResolveError{File: file, Tiers: tiers}
}

// fetchRemote downloads a rule file from the pinned remote ref and writes it
// through the local cache directory (or a throwaway temp directory when
// caching is off), then reads it back.
func fetchRemote(ctx context.Context, file string, state *config.State) ([]byte, error) {
	settings := state.Settings
	url := fmt.Sprintf("%s/%s/config/%s", settings.RuleBaseURL, settings.RuleRef, file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: settings.RemoteFetchTimout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	dir := filepath.Join(state.WorkDir, "config")
	if !state.UseCache {
		tmp, err := os.MkdirTemp("", "driversweep-rules-*")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}
