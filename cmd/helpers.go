package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/stevehiehn/maintain/internal/engine"
	"github.com/stevehiehn/maintain/internal/plan"
)

// parseInputs converts ["key=value", ...] to a map.
func parseInputs(raw []string) map[string]string {
	m := map[string]string{}
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		}
	}
	return m
}

// loadPlan reads a plan, applies input defaults and validates it.
func loadPlan(path string, raw []string) (*plan.Plan, map[string]string, error) {
	p, err := plan.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	inputs := plan.ApplyDefaults(p, parseInputs(raw))
	if err := plan.Validate(p, inputs); err != nil {
		return nil, nil, err
	}
	return p, inputs, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func printTaskList(w io.Writer, report *engine.Report) {
	for _, tr := range report.Results {
		fmt.Fprintf(w, "Task: %s\n", tr.Task)
		if tr.Description != "" {
			fmt.Fprintf(w, "  Description: %s\n", tr.Description)
		}
		if tr.DryRunInfo != "" {
			fmt.Fprintf(w, "  %s\n", tr.DryRunInfo)
		}
		fmt.Fprintln(w)
	}
}

func workDir(artifacts bool) string {
	if !artifacts {
		return ""
	}
	wd, _ := os.Getwd()
	return wd
}
