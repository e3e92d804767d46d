package plugin

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/mnemo-app/mnemo/internal/algorithm"
	"github.com/mnemo-app/mnemo/internal/plugin/sandbox"
)

const demoManifest = `{
	"id": "demo-sched",
	"name": "Demo Scheduler",
	"version": "1.0.0",
	"engines": {"hostVersion": "*"},
	"contributes": {
		"reviewAlgorithms": [
			{"id": "aggressive", "name": "Aggressive", "main": "aggressive.lua"}
		]
	}
}`

const demoReviewSource = `
function calculate(input)
	return {
		repetition = input.repetition + 1,
		easeFactor = input.easeFactor,
		intervalDays = math.max(1, input.intervalDays * 3),
	}
end
`

func newTestManager(t *testing.T, root string, execCfg sandbox.Config) (*Manager, *algorithm.Registry, *sandbox.Executor) {
	t.Helper()
	reg := algorithm.NewRegistry(zerolog.Nop())
	reg.Initialize()

	exec := sandbox.NewExecutor(execCfg, zerolog.Nop())
	if err := exec.Initialize(); err != nil {
		t.Fatalf("executor Initialize() error = %v", err)
	}
	t.Cleanup(exec.Close)

	m := NewManager(Config{
		Root:        root,
		HostVersion: semver.MustParse("1.4.0"),
		Registry:    reg,
		Executor:    exec,
		Logger:      zerolog.Nop(),
	})
	return m, reg, exec
}

func writePluginDir(t *testing.T, root, dir string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		full := filepath.Join(path, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func buildArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanSkipsCorruptManifest(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "broken", map[string]string{
		ManifestName: `{not json`,
	})
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.ScanPlugins(); err != nil {
		t.Fatalf("ScanPlugins() error = %v", err)
	}

	all := m.GetAll()
	if len(all) != 2 {
		t.Fatalf("GetAll() = %d plugins, want 2", len(all))
	}

	broken, err := m.Get("broken")
	if err != nil {
		t.Fatalf("Get(broken): %v", err)
	}
	if broken.Status != StatusError || broken.Err == "" {
		t.Errorf("broken plugin status = %s err = %q, want error with message", broken.Status, broken.Err)
	}

	healthy, err := m.Get("demo-sched")
	if err != nil {
		t.Fatalf("Get(demo-sched): %v", err)
	}
	if healthy.Status != StatusScanned {
		t.Errorf("healthy plugin status = %s, want scanned", healthy.Status)
	}
}

func TestInitializeLoadsEnabledPlugins(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, err := m.Get("demo-sched")
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != StatusLoaded {
		t.Fatalf("status = %s, want loaded", info.Status)
	}

	wantID := "algo:review:plugin:demo-sched:aggressive"
	if len(info.LoadedAlgorithmIDs) != 1 || info.LoadedAlgorithmIDs[0] != wantID {
		t.Errorf("LoadedAlgorithmIDs = %v, want [%s]", info.LoadedAlgorithmIDs, wantID)
	}

	entry, ok := reg.Get(wantID)
	if !ok {
		t.Fatalf("registry missing %s", wantID)
	}

	res, err := entry.Review.Calculate(context.Background(), algorithm.ReviewRequest{
		Rating:       algorithm.RatingGood,
		Repetition:   2,
		EaseFactor:   2.5,
		IntervalDays: 4,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if res.Repetition != 3 || res.IntervalDays != 12 {
		t.Errorf("result = %+v, want repetition 3 interval 12", res)
	}
}

func TestLoadsReviewAndDiffContributions(t *testing.T) {
	root := t.TempDir()
	manifest := `{
		"id": "combo",
		"name": "Combo Pack",
		"version": "2.1.0",
		"contributes": {
			"reviewAlgorithms": [
				{"id": "aggressive", "name": "Aggressive", "main": "aggressive.lua"}
			],
			"diffAlgorithms": [
				{"id": "naive", "name": "Naive Diff", "main": "naive.lua"}
			]
		}
	}`
	diffSource := `
local function split(s)
	local out = {}
	for line in string.gmatch(s .. "\n", "(.-)\n") do
		out[#out + 1] = line
	end
	return out
end

function diff(old, new)
	local a, b = split(old), split(new)
	local changes = {}
	local i, j = 1, 1
	while i <= #a or j <= #b do
		if i <= #a and j <= #b and a[i] == b[j] then
			changes[#changes + 1] = { op = "equal", text = a[i] }
			i = i + 1
			j = j + 1
		elseif i <= #a then
			changes[#changes + 1] = { op = "delete", text = a[i] }
			i = i + 1
		else
			changes[#changes + 1] = { op = "add", text = b[j] }
			j = j + 1
		end
	end
	return changes
end
`
	writePluginDir(t, root, "combo", map[string]string{
		ManifestName:     manifest,
		"aggressive.lua": demoReviewSource,
		"naive.lua":      diffSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, err := m.Get("combo")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.LoadedAlgorithmIDs) != 2 {
		t.Fatalf("LoadedAlgorithmIDs = %v, want 2 entries", info.LoadedAlgorithmIDs)
	}
	if _, ok := reg.Get("algo:review:plugin:combo:aggressive"); !ok {
		t.Error("review contribution not registered")
	}
	entry, ok := reg.Get("algo:diff:plugin:combo:naive")
	if !ok {
		t.Fatal("diff contribution not registered")
	}

	changes, err := entry.Diff.Diff(context.Background(), "a\nb", "a\nc")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	want := []algorithm.Change{
		{Op: algorithm.OpEqual, Text: "a"},
		{Op: algorithm.OpDelete, Text: "b"},
		{Op: algorithm.OpAdd, Text: "c"},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %v, want %v", i, changes[i], want[i])
		}
	}

	if got := len(m.GetAll(StatusLoaded)); got != 1 {
		t.Errorf("GetAll(loaded) = %d plugins, want 1", got)
	}
	if got := len(m.GetAll(StatusError)); got != 0 {
		t.Errorf("GetAll(error) = %d plugins, want 0", got)
	}
}

func TestIncompatiblePluginForceDisabled(t *testing.T) {
	root := t.TempDir()
	manifest := strings.Replace(demoManifest, `"hostVersion": "*"`, `"hostVersion": "^9.0.0"`, 1)
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     manifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, err := m.Get("demo-sched")
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != StatusDisabled || info.Enabled {
		t.Errorf("status = %s enabled = %v, want disabled", info.Status, info.Enabled)
	}
	if len(reg.ListAvailable(algorithm.KindReview)) != 2 {
		t.Error("incompatible plugin registered algorithms")
	}

	if err := m.Enable("demo-sched"); !errors.Is(err, ErrIncompatible) {
		t.Errorf("Enable error = %v, want ErrIncompatible", err)
	}
}

func TestEnableDisableLifecycle(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
		sidecarName:      `{"enabled": false}`,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, _ := m.Get("demo-sched")
	if info.Status != StatusScanned || info.Enabled {
		t.Fatalf("status = %s enabled = %v, want scanned and disabled", info.Status, info.Enabled)
	}

	if err := m.Enable("demo-sched"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	info, _ = m.Get("demo-sched")
	if info.Status != StatusLoaded || !info.Enabled {
		t.Fatalf("after Enable: status = %s enabled = %v", info.Status, info.Enabled)
	}
	if got := len(reg.ListAvailable(algorithm.KindReview)); got != 3 {
		t.Errorf("review algorithms = %d, want 3", got)
	}
	if !loadSidecar(dir).Enabled {
		t.Error("enable flag not persisted")
	}

	if err := m.Disable("demo-sched"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	info, _ = m.Get("demo-sched")
	if info.Status != StatusDisabled || info.Enabled {
		t.Fatalf("after Disable: status = %s enabled = %v", info.Status, info.Enabled)
	}
	if got := len(reg.ListAvailable(algorithm.KindReview)); got != 2 {
		t.Errorf("review algorithms after disable = %d, want 2", got)
	}
	if loadSidecar(dir).Enabled {
		t.Error("disable flag not persisted")
	}
}

func TestDisableCurrentFallsBack(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	pluginID := "algo:review:plugin:demo-sched:aggressive"
	if !reg.SetCurrent(algorithm.KindReview, pluginID) {
		t.Fatal("SetCurrent failed")
	}

	var changes int
	unsubscribe := reg.Subscribe(func(ev algorithm.Event) {
		if ev.Type == algorithm.EventCurrentChanged && ev.Kind == algorithm.KindReview {
			changes++
		}
	})
	defer unsubscribe()

	if err := m.Disable("demo-sched"); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if got := reg.CurrentID(algorithm.KindReview); got != algorithm.DefaultReviewID {
		t.Errorf("current = %s, want %s", got, algorithm.DefaultReviewID)
	}
	if changes != 1 {
		t.Errorf("currentChanged events = %d, want 1", changes)
	}
}

func TestInstallFromArchive(t *testing.T) {
	root := t.TempDir()
	archive := buildArchive(t, map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	var events []EventType
	m.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	info, err := m.InstallFromArchive(archive, false)
	if err != nil {
		t.Fatalf("InstallFromArchive: %v", err)
	}
	if info.ID != "demo-sched" || info.Status != StatusLoaded {
		t.Fatalf("installed info = %s/%s, want demo-sched loaded", info.ID, info.Status)
	}

	if !reg.SetCurrent(algorithm.KindReview, "algo:review:plugin:demo-sched:aggressive") {
		t.Fatal("installed algorithm not selectable")
	}

	// Staging directories must not survive the install.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staging-") {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}

	if len(events) < 2 || events[0] != EventInstalled || events[1] != EventLoaded {
		t.Errorf("events = %v, want [installed loaded ...]", events)
	}

	pluginDir := filepath.Join(root, "demo-sched")
	if err := m.Uninstall("demo-sched"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(pluginDir); !os.IsNotExist(err) {
		t.Error("plugin directory still on disk after uninstall")
	}
	if got := reg.CurrentID(algorithm.KindReview); got != algorithm.DefaultReviewID {
		t.Errorf("current after uninstall = %s, want default", got)
	}
	if _, err := m.Get("demo-sched"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get after uninstall = %v, want ErrPluginNotFound", err)
	}
}

func TestInstallAlreadyInstalled(t *testing.T) {
	root := t.TempDir()
	archive := buildArchive(t, map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.InstallFromArchive(archive, false); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if _, err := m.InstallFromArchive(archive, false); !errors.Is(err, ErrAlreadyInstalled) {
		t.Errorf("second install error = %v, want ErrAlreadyInstalled", err)
	}
	if _, err := m.InstallFromArchive(archive, true); err != nil {
		t.Errorf("overwrite install error = %v", err)
	}
}

func TestInstallArchiveWithWrapperDirectory(t *testing.T) {
	root := t.TempDir()
	archive := buildArchive(t, map[string]string{
		"demo-sched/" + ManifestName: demoManifest,
		"demo-sched/aggressive.lua":  demoReviewSource,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	info, err := m.InstallFromArchive(archive, false)
	if err != nil {
		t.Fatalf("InstallFromArchive: %v", err)
	}
	if info.Status != StatusLoaded {
		t.Errorf("status = %s, want loaded", info.Status)
	}
}

func TestInstallRejectsEscapingArchiveEntries(t *testing.T) {
	root := t.TempDir()
	archive := buildArchive(t, map[string]string{
		ManifestName:  demoManifest,
		"../evil.lua": "os.exit(1)",
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.InstallFromArchive(archive, false); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("error = %v, want ErrUnsafePath", err)
	}
}

func TestInstallSurvivesLoadFailure(t *testing.T) {
	root := t.TempDir()
	// Valid manifest, but the declared source file is missing from the
	// archive: install must stand while the load failure lands in Info.Err.
	archive := buildArchive(t, map[string]string{
		ManifestName: demoManifest,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	var events []EventType
	m.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	info, err := m.InstallFromArchive(archive, false)
	if err != nil {
		t.Fatalf("InstallFromArchive: %v", err)
	}
	if info.Status != StatusError {
		t.Errorf("status = %s, want error", info.Status)
	}
	if !strings.Contains(info.Err, "aggressive") {
		t.Errorf("Err = %q, want failure naming the contribution", info.Err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "demo-sched")); statErr != nil {
		t.Errorf("plugin directory missing after install: %v", statErr)
	}

	var sawError bool
	for _, ev := range events {
		if ev == EventError {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("events = %v, want an error event", events)
	}
}

func TestStartupTimeoutFallsBackUnsafe(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	cfg := sandbox.DefaultConfig()
	cfg.StartupTimeout = time.Nanosecond
	m, reg, exec := newTestManager(t, root, cfg)
	if exec.IsAvailable() {
		t.Fatal("executor reports available after startup timeout")
	}

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, _ := m.Get("demo-sched")
	if info.Status != StatusLoaded {
		t.Fatalf("status = %s, want loaded via fallback", info.Status)
	}

	entry, ok := reg.Get("algo:review:plugin:demo-sched:aggressive")
	if !ok {
		t.Fatal("fallback algorithm not registered")
	}
	res, err := entry.Review.Calculate(context.Background(), algorithm.ReviewRequest{
		Rating:       algorithm.RatingGood,
		Repetition:   1,
		EaseFactor:   2.5,
		IntervalDays: 2,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if res.IntervalDays != 6 {
		t.Errorf("interval = %v, want 6", res.IntervalDays)
	}
}

func TestLoadFallsBackWithoutExecutor(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	cfg := sandbox.DefaultConfig()
	cfg.Disabled = true
	m, reg, exec := newTestManager(t, root, cfg)
	if exec.IsAvailable() {
		t.Fatal("disabled executor reports available")
	}

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	info, _ := m.Get("demo-sched")
	if info.Status != StatusLoaded {
		t.Fatalf("status = %s, want loaded via fallback", info.Status)
	}

	entry, ok := reg.Get("algo:review:plugin:demo-sched:aggressive")
	if !ok {
		t.Fatal("fallback algorithm not registered")
	}
	res, err := entry.Review.Calculate(context.Background(), algorithm.ReviewRequest{
		Rating:       algorithm.RatingGood,
		Repetition:   1,
		EaseFactor:   2.5,
		IntervalDays: 2,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if res.IntervalDays != 6 {
		t.Errorf("interval = %v, want 6", res.IntervalDays)
	}
}

func TestLoadPartialFailure(t *testing.T) {
	root := t.TempDir()
	manifest := `{
		"id": "demo-sched",
		"name": "Demo Scheduler",
		"version": "1.0.0",
		"contributes": {
			"reviewAlgorithms": [
				{"id": "aggressive", "name": "Aggressive", "main": "aggressive.lua"},
				{"id": "ghost", "name": "Ghost", "main": "missing.lua"}
			]
		}
	}`
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     manifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	err := m.Initialize()
	if err == nil {
		t.Fatal("Initialize() = nil, want joined load error")
	}

	info, getErr := m.Get("demo-sched")
	if getErr != nil {
		t.Fatal(getErr)
	}
	if info.Status != StatusLoaded {
		t.Errorf("status = %s, want loaded with partial contributions", info.Status)
	}
	if len(info.LoadedAlgorithmIDs) != 1 {
		t.Errorf("loaded ids = %v, want just the healthy one", info.LoadedAlgorithmIDs)
	}
	if info.Err == "" || !strings.Contains(info.Err, "ghost") {
		t.Errorf("Err = %q, want failure mentioning ghost", info.Err)
	}
	if _, ok := reg.Get("algo:review:plugin:demo-sched:aggressive"); !ok {
		t.Error("healthy contribution not registered")
	}
}

func TestAllContributionsFailingIsError(t *testing.T) {
	root := t.TempDir()
	manifest := `{
		"id": "demo-sched",
		"name": "Demo Scheduler",
		"version": "1.0.0",
		"contributes": {
			"reviewAlgorithms": [
				{"id": "ghost", "name": "Ghost", "main": "missing.lua"}
			]
		}
	}`
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName: manifest,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err == nil {
		t.Fatal("Initialize() = nil, want load error")
	}

	info, _ := m.Get("demo-sched")
	if info.Status != StatusError {
		t.Errorf("status = %s, want error", info.Status)
	}
}

func TestReloadPicksUpEditedSource(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, reg, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}

	edited := strings.Replace(demoReviewSource, "input.intervalDays * 3", "input.intervalDays * 5", 1)
	if err := os.WriteFile(filepath.Join(dir, "aggressive.lua"), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Reload("demo-sched"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	entry, ok := reg.Get("algo:review:plugin:demo-sched:aggressive")
	if !ok {
		t.Fatal("algorithm missing after reload")
	}
	res, err := entry.Review.Calculate(context.Background(), algorithm.ReviewRequest{
		Rating:       algorithm.RatingGood,
		Repetition:   1,
		EaseFactor:   2.5,
		IntervalDays: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IntervalDays != 10 {
		t.Errorf("interval = %v, want 10 from edited source", res.IntervalDays)
	}
}

func TestReloadDisabledPlugin(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "demo-sched", map[string]string{
		ManifestName:     demoManifest,
		"aggressive.lua": demoReviewSource,
	})

	m, _, _ := newTestManager(t, root, sandbox.DefaultConfig())
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := m.Disable("demo-sched"); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload("demo-sched"); !errors.Is(err, ErrPluginDisabled) {
		t.Errorf("Reload error = %v, want ErrPluginDisabled", err)
	}
}

func TestUnknownPluginOperations(t *testing.T) {
	m, _, _ := newTestManager(t, t.TempDir(), sandbox.DefaultConfig())

	for name, op := range map[string]func() error{
		"Enable":    func() error { return m.Enable("nope") },
		"Disable":   func() error { return m.Disable("nope") },
		"Uninstall": func() error { return m.Uninstall("nope") },
		"Reload":    func() error { return m.Reload("nope") },
	} {
		if err := op(); !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("%s error = %v, want ErrPluginNotFound", name, err)
		}
	}
}
