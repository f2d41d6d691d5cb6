package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stevehiehn/maintain/internal/config"
	"github.com/stevehiehn/maintain/internal/server"
)

// newE2EServer serves plansDir through the real console handle.
func newE2EServer(t *testing.T, plansDir string, s config.Settings) *httptest.Server {
	t.Helper()
	srv := server.New(server.Config{PlansDir: plansDir, WorkDir: t.TempDir(), Settings: s})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postRun(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(data)
}

func TestHTTPClearPlanE2E(t *testing.T) {
	appDir := setupApp(t)
	plans := t.TempDir()
	writePlan(t, plans, "clear.yaml", `
name: clear
banner: Running Laravel maintenance commands...
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks: [config:clear, cache:clear, route:clear, view:clear, config:cache]
`)
	ts := newE2EServer(t, plans, config.Settings{})

	resp, body := postRun(t, ts.URL+"/run/clear")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got := strings.Count(body, "\n> sh ./artisan "); got != 5 {
		t.Errorf("expected 5 task headers, got %d:\n%s", got, body)
	}
	if !strings.HasSuffix(body, "✅ Done.\n") {
		t.Errorf("expected success marker:\n%s", body)
	}
	if resp.Trailer.Get("X-Maintain-Success") != "true" {
		t.Errorf("expected success trailer, got %q", resp.Trailer.Get("X-Maintain-Success"))
	}
}

func TestHTTPMigrateFailureE2E(t *testing.T) {
	appDir := setupApp(t)
	plans := t.TempDir()
	writePlan(t, plans, "sessions.yaml", `
name: sessions
app:
  command: [sh, ./artisan]
  dir: `+appDir+`
tasks:
  - session:table
  - migrate --force
  - config:cache
`)
	ts := newE2EServer(t, plans, config.Settings{SessionDriver: "array"})

	resp, body := postRun(t, ts.URL+"/run/sessions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 (streamed), got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "session=array") {
		t.Errorf("expected session override in output:\n%s", body)
	}
	if !strings.Contains(body, "Connection refused") {
		t.Errorf("expected failure text:\n%s", body)
	}
	if strings.Contains(body, "config:cache") {
		t.Errorf("task after the failure must not run:\n%s", body)
	}
	if resp.Trailer.Get("X-Maintain-Success") != "false" {
		t.Errorf("expected failure trailer")
	}
	if got := calls(t, appDir); len(got) != 2 {
		t.Errorf("expected 2 console calls, got %q", got)
	}
}

func TestHTTPMissingAppDirE2E(t *testing.T) {
	plans := t.TempDir()
	writePlan(t, plans, "broken.yaml", `
name: broken
app:
  dir: `+filepath.Join(t.TempDir(), "nope")+`
tasks: [config:clear]
`)
	ts := newE2EServer(t, plans, config.Settings{})
	resp, _ := postRun(t, ts.URL+"/run/broken")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}
