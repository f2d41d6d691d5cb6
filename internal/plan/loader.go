package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a plan YAML file.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return Load(data)
}

// Load parses plan YAML bytes.
func Load(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(p.Tasks) == 0 {
		return nil, fmt.Errorf("plan has no tasks")
	}
	if p.Name == "" {
		return nil, fmt.Errorf("plan has no name")
	}
	return &p, nil
}

// LoadDir loads every *.yaml and *.yml plan in dir, sorted by plan name.
// Files that fail to parse are returned in skipped.
func LoadDir(dir string) (plans []*Plan, skipped map[string]error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading plans dir: %w", err)
	}
	skipped = map[string]error{}
	for _, e := range entries {
		if e.IsDir() || !isPlanFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadFile(path)
		if err != nil {
			skipped[path] = err
			continue
		}
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans, skipped, nil
}

// Find returns the plan named name from dir.
func Find(dir, name string) (*Plan, error) {
	plans, _, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("plan %q not found in %s", name, dir)
}

// ApplyDefaults fills inputs that were not provided with their declared defaults.
func ApplyDefaults(p *Plan, inputs map[string]string) map[string]string {
	if inputs == nil {
		inputs = map[string]string{}
	}
	for name, inp := range p.Inputs {
		if _, ok := inputs[name]; !ok && inp.Default != "" {
			inputs[name] = inp.Default
		}
	}
	return inputs
}

func isPlanFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
