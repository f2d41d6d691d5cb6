package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stevehiehn/maintain/internal/config"
	"github.com/stevehiehn/maintain/internal/engine"
	dagerrors "github.com/stevehiehn/maintain/internal/errors"
	"github.com/stevehiehn/maintain/internal/plan"
)

// fakeArtisan is a console stand-in: it logs each invocation to calls.log,
// prints Laravel-like messages, and fails "migrate" unless DB_REACHABLE=1.
const fakeArtisan = `#!/bin/sh
echo "$*" >> "$(dirname "$0")/calls.log"
case "$1" in
  config:clear) echo "Configuration cache cleared!" ;;
  cache:clear)  echo "Application cache cleared!" ;;
  route:clear)  echo "Route cache cleared!" ;;
  view:clear)   echo "Compiled views cleared!" ;;
  config:cache) echo "Configuration cached successfully!" ;;
  session:table) echo "Migration created successfully. (session=$SESSION_DRIVER)" ;;
  migrate)
    if [ "$DB_REACHABLE" = "1" ]; then echo "Nothing to migrate."; exit 0; fi
    echo "SQLSTATE[HY000] [2002] Connection refused" >&2
    exit 1
    ;;
  *) echo "Command \"$1\" is not defined." >&2; exit 1 ;;
esac
`

func setupApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "artisan"), []byte(fakeArtisan), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writePlan(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadPlan(t *testing.T, path string) *plan.Plan {
	t.Helper()
	p, err := plan.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func calls(t *testing.T, appDir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(appDir, "calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func runPlan(t *testing.T, path string, s config.Settings, approve bool) (*engine.Report, string, error) {
	t.Helper()
	p := loadPlan(t, path)
	inputs := plan.ApplyDefaults(p, nil)
	if err := plan.Validate(p, inputs); err != nil {
		t.Fatal(err)
	}
	h, err := s.NewConsole(p.App, "")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	rc := engine.NewRunContext(t.TempDir(), inputs, approve)
	rc.Prompt = "php artisan"
	rc.Stream = &out
	report, err := engine.Execute(context.Background(), p, h, rc, engine.ModeRun)
	return report, out.String(), err
}

func TestClearCachesE2E(t *testing.T) {
	appDir := setupApp(t)
	path := writePlan(t, appDir, "clear.yaml", `
name: clear
banner: Running Laravel maintenance commands...
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks:
  - config:clear
  - cache:clear
  - route:clear
  - view:clear
  - config:cache
`)
	report, out, err := runPlan(t, path, config.Settings{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Success || report.Summary != "Done." {
		t.Fatalf("expected success marker, got %+v", report)
	}
	if len(report.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(report.Results))
	}
	want := []string{"config:clear", "cache:clear", "route:clear", "view:clear", "config:cache"}
	if got := calls(t, appDir); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected call order %q", got)
	}
	if !strings.HasPrefix(out, "Running Laravel maintenance commands...\n\n> php artisan config:clear\nConfiguration cache cleared!\n") {
		t.Errorf("unexpected stream start:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n✅ Done.\n") {
		t.Errorf("expected success marker at end:\n%s", out)
	}
}

func TestSessionsMigrateFailsE2E(t *testing.T) {
	appDir := setupApp(t)
	path := writePlan(t, appDir, "sessions.yaml", `
name: sessions
done: Sessions table created and migrations done.
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
  env:
    SESSION_DRIVER: database
tasks:
  - session:table
  - migrate --force
`)
	s := config.Settings{SessionDriver: "file"}
	report, out, err := runPlan(t, path, s, false)
	if !dagerrors.IsFatal(err) {
		t.Fatalf("expected fatal operation failure, got %v", err)
	}
	if len(report.Results) != 2 || report.Succeeded() != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", report.Results)
	}
	if !strings.Contains(report.Results[1].Error, "Connection refused") {
		t.Errorf("expected failure text, got %q", report.Results[1].Error)
	}
	if !strings.Contains(report.Results[0].Output, "session=file") {
		t.Errorf("expected settings override to reach the console, got %q", report.Results[0].Output)
	}
	if report.Summary != "" || strings.Contains(out, "✅") {
		t.Error("expected no success marker after failure")
	}
}

func TestFailureHaltsRemainingTasksE2E(t *testing.T) {
	appDir := setupApp(t)
	path := writePlan(t, appDir, "mixed.yaml", `
name: mixed
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks:
  - config:clear
  - migrate --force
  - view:clear
  - config:cache
`)
	report, _, err := runPlan(t, path, config.Settings{}, false)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := calls(t, appDir); len(got) != 2 || got[1] != "migrate --force" {
		t.Errorf("expected no calls after the failing task, got %q", got)
	}
	if len(report.Results) != 2 {
		t.Errorf("expected truncated report, got %d results", len(report.Results))
	}
}

func TestEnvOverrideMakesMigrateSucceedE2E(t *testing.T) {
	appDir := setupApp(t)
	path := writePlan(t, appDir, "sessions.yaml", `
name: sessions
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
  env:
    DB_REACHABLE: "1"
tasks:
  - session:table
  - name: migrate
    args: [--force]
    destructive: true
`)
	if _, _, err := runPlan(t, path, config.Settings{}, false); err == nil {
		t.Fatal("expected approval error")
	}
	if got := calls(t, appDir); got != nil {
		t.Fatalf("expected no calls without approval, got %q", got)
	}

	report, _, err := runPlan(t, path, config.Settings{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Success {
		t.Fatal("expected success")
	}
	if _, ok := os.LookupEnv("DB_REACHABLE"); ok {
		t.Error("plan overrides leaked into the test process environment")
	}
}

func TestArtifactPersistenceE2E(t *testing.T) {
	appDir := setupApp(t)
	path := writePlan(t, appDir, "clear.yaml", `
name: clear
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks: [config:clear, view:clear]
`)
	report, _, err := runPlan(t, path, config.Settings{}, false)
	if err != nil {
		t.Fatal(err)
	}
	base := report.Artifacts[0]
	for _, f := range []string{"report.json", "tasks/01-config_clear.out", "tasks/02-view_clear.out"} {
		if _, err := os.Stat(filepath.Join(base, f)); err != nil {
			t.Errorf("expected artifact %s: %v", f, err)
		}
	}
}

func TestDeterminismE2E(t *testing.T) {
	var shapes []string
	for i := 0; i < 2; i++ {
		appDir := setupApp(t)
		path := writePlan(t, appDir, "clear.yaml", `
name: clear
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks: [config:clear, cache:clear, route:clear]
`)
		report, _, err := runPlan(t, path, config.Settings{}, false)
		if err != nil {
			t.Fatal(err)
		}
		shapes = append(shapes, strings.Join(report.Names(), ","))
	}
	if shapes[0] != shapes[1] {
		t.Errorf("reports differ: %q vs %q", shapes[0], shapes[1])
	}
}

func TestExampleClearPlanValidates(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("examples", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("expected example plans")
	}
	for _, path := range paths {
		p := loadPlan(t, path)
		if err := plan.Validate(p, nil); err != nil {
			t.Errorf("%s: %v", path, err)
		}
	}
}

func TestExampleSessionsPlanE2E(t *testing.T) {
	appDir := setupApp(t)
	p := loadPlan(t, filepath.Join("examples", "sessions.yaml"))
	p.App.Command = []string{"sh", "./artisan"}
	p.App.Dir = appDir
	p.App.Env["DB_REACHABLE"] = "1"

	inputs := plan.ApplyDefaults(p, nil)
	if err := plan.Validate(p, inputs); err != nil {
		t.Fatal(err)
	}
	h, err := config.Settings{}.NewConsole(p.App, "")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	rc := engine.NewRunContext("", inputs, false)
	rc.Stream = &out
	report, err := engine.Execute(context.Background(), p, h, rc, engine.ModeRun)
	if err != nil {
		t.Fatalf("example plan must run without --approve: %v", err)
	}
	if !report.Success {
		t.Fatal("expected success")
	}

	want := []string{"session:table", "migrate --force"}
	if got := calls(t, appDir); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if !strings.Contains(out.String(), "session=file") {
		t.Errorf("expected SESSION_DRIVER=file in child env, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "✅ Sessions table created and migrations done.\n") {
		t.Errorf("unexpected marker: %q", out.String())
	}
}
