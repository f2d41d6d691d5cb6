package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stevehiehn/maintain/internal/runner"
)

// Handle executes named operations against the external application.
type Handle interface {
	Execute(ctx context.Context, name string, args []string) (output string, err error)
}

// Options configures a Console.
type Options struct {
	Command []string          // argv prefix, e.g. ["php", "artisan"]
	Dir     string            // working directory of the application
	Env     map[string]string // overrides applied on top of the inherited environment
}

// Console runs operations through the application's console binary.
type Console struct {
	command []string
	dir     string
	env     []string
}

// NewConsole builds a Console. The environment is fixed at this point: later
// changes to opts.Env or to the current process environment are not seen.
func NewConsole(opts Options) (*Console, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("console command is empty")
	}
	if opts.Dir != "" {
		info, err := os.Stat(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("application dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("application dir %s is not a directory", opts.Dir)
		}
	}
	c := &Console{
		command: append([]string(nil), opts.Command...),
		dir:     opts.Dir,
		env:     mergeEnv(os.Environ(), opts.Env),
	}
	log.Debug().
		Strs("command", c.command).
		Str("dir", c.dir).
		Strs("overrides", sortedKeys(opts.Env)).
		Msg("Console handle created")
	return c, nil
}

// Execute runs "<command> name args..." and returns its combined output.
func (c *Console) Execute(ctx context.Context, name string, args []string) (string, error) {
	argv := append(append(append([]string(nil), c.command...), name), args...)
	res := runner.Run(ctx, runner.Process{Argv: argv, Dir: c.dir, Env: c.env})
	if res.Err != nil {
		return res.Combined, fmt.Errorf("starting %s: %w", c.command[0], res.Err)
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = lastLine(res.Stdout)
		}
		if detail == "" {
			return res.Combined, fmt.Errorf("exit code %d", res.ExitCode)
		}
		return res.Combined, fmt.Errorf("exit code %d: %s", res.ExitCode, detail)
	}
	return res.Combined, nil
}

// Environ returns a copy of the environment child processes receive.
func (c *Console) Environ() []string {
	return append([]string(nil), c.env...)
}

// Lookup returns the value of key in the handle's environment.
func (c *Console) Lookup(key string) (string, bool) {
	prefix := key + "="
	for _, kv := range c.env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// Prompt is the prefix shown before each task in streamed output.
func (c *Console) Prompt() string {
	return strings.Join(c.command, " ")
}

// mergeEnv drops every base entry that an override replaces, then appends the
// overrides in key order.
func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range sortedKeys(overrides) {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// HandleFunc adapts an ordinary function to the Handle interface.
type HandleFunc func(ctx context.Context, name string, args []string) (string, error)

// Execute calls f(ctx, name, args).
func (f HandleFunc) Execute(ctx context.Context, name string, args []string) (string, error) {
	return f(ctx, name, args)
}
