package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCommand is the console prefix used when a plan does not set app.command.
var DefaultCommand = []string{"php", "artisan"}

// Plan is the top-level maintenance plan structure.
type Plan struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Banner      string           `yaml:"banner,omitempty"` // first streamed line
	Done        string           `yaml:"done,omitempty"`   // success marker text
	Inputs      map[string]Input `yaml:"inputs,omitempty"`
	App         App              `yaml:"app,omitempty"`
	Tasks       []Task           `yaml:"tasks"`
}

// Input defines a plan-level input parameter.
type Input struct {
	Required    bool   `yaml:"required,omitempty"`
	Description string `yaml:"description,omitempty"`
	Default     string `yaml:"default,omitempty"`
}

// App describes how to reach the application console.
type App struct {
	Command []string          `yaml:"command,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Task is a single named operation understood by the application console.
// In YAML it is either a scalar ("migrate --force") or a mapping.
type Task struct {
	Name        string   `yaml:"name"`
	Args        []string `yaml:"args,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Destructive bool     `yaml:"destructive,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		fields := strings.Fields(value.Value)
		if len(fields) == 0 {
			return fmt.Errorf("line %d: empty task", value.Line)
		}
		*t = Task{Name: fields[0], Args: fields[1:]}
		return nil
	}
	type rawTask Task
	var rt rawTask
	if err := value.Decode(&rt); err != nil {
		return err
	}
	*t = Task(rt)
	return nil
}

// String renders the task the way it is passed to the console.
func (t Task) String() string {
	return strings.Join(append([]string{t.Name}, t.Args...), " ")
}

// ParseTask builds a Task from its command-line form, e.g. "migrate --force".
func ParseTask(s string) Task {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Task{}
	}
	return Task{Name: fields[0], Args: fields[1:]}
}

// CommandOrDefault returns the console prefix, falling back to DefaultCommand.
func (a App) CommandOrDefault() []string {
	if len(a.Command) == 0 {
		return append([]string(nil), DefaultCommand...)
	}
	return append([]string(nil), a.Command...)
}

// BannerOrDefault returns the first line streamed for a run.
func (p *Plan) BannerOrDefault() string {
	if p.Banner != "" {
		return p.Banner
	}
	return fmt.Sprintf("Running %s...", p.Name)
}

// DoneOrDefault returns the success marker text.
func (p *Plan) DoneOrDefault() string {
	if p.Done != "" {
		return p.Done
	}
	return "Done."
}
