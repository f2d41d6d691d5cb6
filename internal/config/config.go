// Package config reads the environment-variable settings that must be known
// before an application handle is constructed.
package config

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/stevehiehn/maintain/internal/app"
	"github.com/stevehiehn/maintain/internal/plan"
)

// Recognized environment variables.
const (
	EnvSessionDriver = "MAINTAIN_SESSION_DRIVER"
	EnvCacheStore    = "MAINTAIN_CACHE_STORE"
	EnvAppDir        = "MAINTAIN_APP_DIR"
	EnvLogLevel      = "MAINTAIN_LOG_LEVEL"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Settings is the resolved environment configuration.
type Settings struct {
	SessionDriver string
	CacheStore    string
	AppDir        string
	LogLevel      zerolog.Level
}

// Load reads Settings through lookup. A nil lookup uses os.LookupEnv.
func Load(lookup LookupFunc) (Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s := Settings{LogLevel: zerolog.InfoLevel}
	s.SessionDriver, _ = lookup(EnvSessionDriver)
	s.CacheStore, _ = lookup(EnvCacheStore)
	s.AppDir, _ = lookup(EnvAppDir)
	if raw, ok := lookup(EnvLogLevel); ok && raw != "" {
		lvl, err := zerolog.ParseLevel(raw)
		if err != nil {
			return Settings{}, err
		}
		s.LogLevel = lvl
	}
	return s, nil
}

// Overrides returns the application environment overrides these settings imply.
func (s Settings) Overrides() map[string]string {
	o := map[string]string{}
	if s.SessionDriver != "" {
		o["SESSION_DRIVER"] = s.SessionDriver
	}
	if s.CacheStore != "" {
		o["CACHE_STORE"] = s.CacheStore
	}
	return o
}

// AppOptions builds handle options from a plan's app section. Settings take
// precedence over the plan, and dirOverride (from a flag) over both.
func (s Settings) AppOptions(a plan.App, dirOverride string) app.Options {
	env := make(map[string]string, len(a.Env)+2)
	for k, v := range a.Env {
		env[k] = v
	}
	for k, v := range s.Overrides() {
		env[k] = v
	}
	dir := a.Dir
	if s.AppDir != "" {
		dir = s.AppDir
	}
	if dirOverride != "" {
		dir = dirOverride
	}
	return app.Options{
		Command: a.CommandOrDefault(),
		Dir:     dir,
		Env:     env,
	}
}

// NewConsole builds the console handle for a plan's app section. Overrides are
// resolved here, before the handle exists.
func (s Settings) NewConsole(a plan.App, dirOverride string) (*app.Console, error) {
	return app.NewConsole(s.AppOptions(a, dirOverride))
}

// HandleFactory builds the application handle for a plan and returns the
// prompt shown before each task.
type HandleFactory func(a plan.App) (app.Handle, string, error)

// Factory returns a HandleFactory that builds consoles from these settings.
func (s Settings) Factory(dirOverride string) HandleFactory {
	return func(a plan.App) (app.Handle, string, error) {
		c, err := s.NewConsole(a, dirOverride)
		if err != nil {
			return nil, "", err
		}
		return c, c.Prompt(), nil
	}
}
