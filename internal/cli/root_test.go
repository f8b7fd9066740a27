package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/store"
)

const testPlaylist = `{
  "name": "friday",
  "tracks": [
    {"title": "Dawn", "artist": "Aria", "bpm": 120, "key": "8A"},
    {"title": "Tide", "artist": "Brook", "bpm": 124, "key": "10A"},
    {"title": "Glow", "artist": "Cove", "bpm": 122, "key": "9A"},
    {"title": "Rise", "artist": "Dune", "bpm": 121, "key": "8B"}
  ]
}`

// testEnv points every XDG and home lookup into a temporary directory.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	for _, v := range []string{"MIXORDER_CACHE_BACKEND", "MIXORDER_STORE_BACKEND", "MIXORDER_SEED", "MIXORDER_REDIS_ADDR", "MIXORDER_MONGO_URI"} {
		t.Setenv(v, "")
	}
	return home
}

func writePlaylist(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "friday.json")
	if err := os.WriteFile(path, []byte(testPlaylist), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the CLI with args and returns what the command wrote to its
// output stream.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	have := map[string]bool{}
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range []string{"optimize", "exact", "keys", "sets", "cache", "config", "serve"} {
		if !have[name] {
			t.Errorf("root command is missing %q", name)
		}
	}
}

func TestVersion(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "mixorder version ") {
		t.Errorf("--version output = %q", out)
	}
}

func TestKeysCommand(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "keys")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"8A", "A minor", "12B", "E major"} {
		if !strings.Contains(out, want) {
			t.Errorf("keys table missing %q", want)
		}
	}

	out, err = execute(t, "keys", "8A", "10A")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"A minor", "B minor", "Wheel path", "9A(+0) = 9A"} {
		if !strings.Contains(out, want) {
			t.Errorf("keys 8A 10A missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "keys", "8A"); err == nil {
		t.Error("keys with one argument should fail")
	}
	if _, err := execute(t, "keys", "8A", "13C"); err == nil {
		t.Error("keys with an invalid key should fail")
	}
}

func TestExactSaveAndSets(t *testing.T) {
	home := testEnv(t)
	playlist := writePlaylist(t, home)
	jsonPath := filepath.Join(home, "out.json")
	dotPath := filepath.Join(home, "out.dot")

	out, err := execute(t, "exact", playlist, "--save", "--name", "friday", "--json", jsonPath, "--dot", dotPath)
	if err != nil {
		t.Fatalf("exact: %v", err)
	}
	if !strings.Contains(out, "Final Mix Order:") {
		t.Errorf("report missing from output:\n%s", out)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Mode != mix.ModeExact || len(res.Tracks) != 4 {
		t.Errorf("result mode %s with %d tracks, want exact with 4", res.Mode, len(res.Tracks))
	}
	dot, err := os.ReadFile(dotPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph Mix {") {
		t.Errorf("dot file = %q", dot)
	}

	st, err := store.NewFileStore(filepath.Join(home, ".config", appName, "sets"))
	if err != nil {
		t.Fatal(err)
	}
	sets, err := st.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 || sets[0].Name != "friday" || sets[0].Tracks != 4 {
		t.Fatalf("saved sets = %+v", sets)
	}
	id := sets[0].ID

	out, err = execute(t, "sets", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "friday") {
		t.Errorf("sets list missing the saved set:\n%s", out)
	}

	out, err = execute(t, "sets", "show", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "friday") || !strings.Contains(out, "BPM") {
		t.Errorf("sets show output:\n%s", out)
	}

	out, err = execute(t, "sets", "show", id, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var saved store.SavedSet
	if err := json.Unmarshal([]byte(out), &saved); err != nil {
		t.Fatalf("decode saved set: %v", err)
	}
	if saved.ID != id || saved.Cost != res.Cost {
		t.Errorf("saved set = %+v, want id %s cost %v", saved, id, res.Cost)
	}

	if _, err := execute(t, "sets", "delete", id); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "sets", "show", id); err == nil {
		t.Error("show after delete should fail")
	}
	if _, err := execute(t, "sets", "delete", "not-an-id"); err == nil {
		t.Error("delete with a malformed id should fail")
	}
}

func TestExactUsesCache(t *testing.T) {
	home := testEnv(t)
	playlist := writePlaylist(t, home)

	decode := func(out string) pipeline.Result {
		t.Helper()
		var res pipeline.Result
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		return res
	}

	out, err := execute(t, "exact", playlist, "--json", "-")
	if err != nil {
		t.Fatal(err)
	}
	first := decode(out)
	if first.CacheHit {
		t.Error("first run should miss the cache")
	}

	out, err = execute(t, "exact", playlist, "--json", "-")
	if err != nil {
		t.Fatal(err)
	}
	second := decode(out)
	if !second.CacheHit || second.Cost != first.Cost {
		t.Errorf("second run: cache hit %v cost %v, want hit with cost %v", second.CacheHit, second.Cost, first.Cost)
	}

	out, err = execute(t, "exact", playlist, "--json", "-", "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	if decode(out).CacheHit {
		t.Error("--no-cache should bypass the cache")
	}

	out, err = execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(home, ".cache", appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "exact", playlist, "--json", "-")
	if err != nil {
		t.Fatal(err)
	}
	if decode(out).CacheHit {
		t.Error("run after cache clear should miss")
	}
}

func TestOptimizeAnneal(t *testing.T) {
	home := testEnv(t)
	playlist := writePlaylist(t, home)

	out, err := execute(t, "optimize", playlist, "--mode", "anneal", "--time", "50ms", "--seed", "7", "--workers", "2", "--json", "-")
	if err != nil {
		t.Fatal(err)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Mode != mix.ModeAnneal {
		t.Errorf("mode = %s, want anneal", res.Mode)
	}
	if len(res.Attempts) == 0 || len(res.Tracks) != 4 {
		t.Errorf("attempts = %d, tracks = %d", len(res.Attempts), len(res.Tracks))
	}
}

func TestOptimizeErrors(t *testing.T) {
	home := testEnv(t)
	playlist := writePlaylist(t, home)

	if _, err := execute(t, "optimize", filepath.Join(home, "missing.json")); err == nil {
		t.Error("missing playlist should fail")
	}
	if _, err := execute(t, "optimize", playlist, "--mode", "greedy"); err == nil {
		t.Error("unknown mode should fail")
	}
	if _, err := execute(t, "optimize"); err == nil {
		t.Error("optimize without a playlist should fail")
	}
}

func TestConfigShow(t *testing.T) {
	home := testEnv(t)

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[optimizer]") || !strings.Contains(out, `mode = "auto"`) {
		t.Errorf("default config:\n%s", out)
	}

	path := filepath.Join(home, "mixorder.yaml")
	if err := os.WriteFile(path, []byte("optimizer:\n  mode: exact\n  workers: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `mode = "exact"`) || !strings.Contains(out, "workers = 4") {
		t.Errorf("config from %s:\n%s", path, out)
	}

	bad := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(bad, []byte("optimizer:\n  mode: greedy\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", bad, "config", "show"); err == nil {
		t.Error("invalid config should fail validation")
	}
}
