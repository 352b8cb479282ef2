package rules

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/driversweep/driversweep/internal/config"
)

func testState(t *testing.T) *config.State {
	t.Helper()
	settings := config.Default()
	return &config.State{
		WorkDir:      t.TempDir(),
		UseCache:     true,
		AllowUpdates: true,
		Settings:     settings,
	}
}

func writeCache(t *testing.T, state *config.State, file, content string) {
	t.Helper()
	dir := filepath.Join(state.WorkDir, "config")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolvePrefersLocalCache(t *testing.T) {
	state := testState(t)
	writeCache(t, state, Devices.File, `[{"friendlyName": "cached rule"}]`)

	ruleSet, err := Resolve(context.Background(), Devices, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(ruleSet) != 1 || ruleSet[0].Name() != "cached rule" {
		t.Fatalf("expected the cached rule set, got %v", ruleSet)
	}
}

func TestResolveFallsThroughToRemoteAndWritesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"friendlyName": "remote rule"}]`))
	}))
	defer server.Close()

	state := testState(t)
	state.Settings.RuleBaseURL = server.URL

	ruleSet, err := Resolve(context.Background(), Devices, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(ruleSet) != 1 || ruleSet[0].Name() != "remote rule" {
		t.Fatalf("expected the remote rule set, got %v", ruleSet)
	}

	// The download must land in the local cache for the next run.
	cached, err := os.ReadFile(filepath.Join(state.WorkDir, "config", Devices.File))
	if err != nil {
		t.Fatalf("remote fetch should populate the cache: %v", err)
	}
	if string(cached) == "" {
		t.Fatal("cached rule file is empty")
	}
}

func TestResolveDoesNotPersistWhenCacheDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"friendlyName": "remote rule"}]`))
	}))
	defer server.Close()

	state := testState(t)
	state.UseCache = false
	state.Settings.RuleBaseURL = server.URL

	if _, err := Resolve(context.Background(), Devices, state); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(state.WorkDir, "config", Devices.File)); !os.IsNotExist(err) {
		t.Error("no-cache run must not write the local rule cache")
	}
}

func TestResolveFallsBackToEmbedded(t *testing.T) {
	state := testState(t)
	state.AllowUpdates = false // no remote; cache dir is empty

	ruleSet, err := Resolve(context.Background(), Packages, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(ruleSet) == 0 {
		t.Fatal("embedded fallback should yield the bundled rule set")
	}
}

func TestResolveRemoteFailureFallsThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	state := testState(t)
	state.Settings.RuleBaseURL = server.URL

	// Cache empty, remote 404: the embedded tier still wins.
	ruleSet, err := Resolve(context.Background(), Drivers, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(ruleSet) == 0 {
		t.Fatal("expected embedded rules after remote failure")
	}
}

func TestResolveParseFailureIsFatal(t *testing.T) {
	state := testState(t)
	writeCache(t, state, Devices.File, `{"not": "an array"}`)

	_, err := Resolve(context.Background(), Devices, state)
	if err == nil {
		t.Fatal("a cached file that fails to parse must be a fatal error, not a fall-through")
	}
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		t.Fatal("parse failure must not be reported as tier exhaustion")
	}
}
