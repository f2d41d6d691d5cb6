package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/stevehiehn/maintain/internal/engine"
	"github.com/stevehiehn/maintain/internal/plan"
)

type toolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func fileSchema(extra map[string]any) map[string]any {
	props := map[string]any{
		"file":   map[string]any{"type": "string"},
		"inputs": map[string]any{"type": "object"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{"type": "object", "properties": props, "required": []string{"file"}}
}

var builtinTools = []toolDef{
	{Name: "plan.validate", Description: "Validate a maintenance plan YAML file", InputSchema: fileSchema(nil)},
	{Name: "plan.explain", Description: "List a plan's resolved tasks without executing", InputSchema: fileSchema(nil)},
	{Name: "plan.dry_run", Description: "Show the console commands a plan would run", InputSchema: fileSchema(nil)},
	{Name: "plan.run", Description: "Run a plan's tasks in order, stopping at the first failure", InputSchema: fileSchema(map[string]any{
		"approve": map[string]any{"type": "boolean"}})},
	{Name: "plan.schema", Description: "Return the plan YAML schema", InputSchema: map[string]any{
		"type": "object", "properties": map[string]any{}}},
}

// loadPlanTools reads every plan in plansDir and generates MCP tool definitions.
func loadPlanTools(plansDir string) []toolDef {
	if plansDir == "" {
		return nil
	}
	plans, _, err := plan.LoadDir(plansDir)
	if err != nil {
		return nil
	}
	tools := make([]toolDef, 0, len(plans))
	for _, p := range plans {
		tools = append(tools, planToToolDef(p))
	}
	return tools
}

// planToToolDef converts a Plan into an MCP tool definition.
func planToToolDef(p *plan.Plan) toolDef {
	properties := map[string]any{}
	var required []string

	for name, inp := range p.Inputs {
		prop := map[string]any{"type": "string"}
		if inp.Description != "" {
			prop["description"] = inp.Description
		}
		if inp.Default != "" {
			prop["default"] = inp.Default
		}
		properties[name] = prop
		if inp.Required && inp.Default == "" {
			required = append(required, name)
		}
	}
	properties["approve"] = map[string]any{"type": "boolean", "description": "Allow destructive tasks"}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	desc := p.Description
	if desc == "" {
		desc = "Run the " + p.Name + " maintenance plan"
	}
	return toolDef{Name: p.Name, Description: desc, InputSchema: schema}
}

func (s *Server) dispatch(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return &JSONRPCResponse{Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "maintain", "version": "0.1.0"},
		}}
	case "tools/list":
		allTools := append([]toolDef{}, builtinTools...)
		allTools = append(allTools, loadPlanTools(s.opts.PlansDir)...)
		return &JSONRPCResponse{Result: map[string]any{"tools": allTools}}
	case "tools/call":
		return s.handleToolCall(ctx, req.Params)
	case "notifications/initialized", "ping":
		return &JSONRPCResponse{Result: map[string]any{}}
	default:
		return &JSONRPCResponse{Error: &RPCError{Code: -32601, Message: "Method not found"}}
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type fileArgs struct {
	File    string            `json:"file"`
	Inputs  map[string]string `json:"inputs"`
	Approve bool              `json:"approve"`
}

func (s *Server) handleToolCall(ctx context.Context, params json.RawMessage) *JSONRPCResponse {
	var tc toolCallParams
	if err := sonic.Unmarshal(params, &tc); err != nil {
		return &JSONRPCResponse{Error: &RPCError{Code: -32602, Message: "Invalid params"}}
	}

	var args fileArgs
	if len(tc.Arguments) > 0 {
		if err := sonic.Unmarshal(tc.Arguments, &args); err != nil && strings.HasPrefix(tc.Name, "plan.") {
			return &JSONRPCResponse{Error: &RPCError{Code: -32602, Message: "Invalid arguments"}}
		}
	}

	switch tc.Name {
	case "plan.validate":
		return s.toolValidate(args.File)
	case "plan.explain":
		return s.toolExecute(ctx, args, engine.ModeExplain)
	case "plan.dry_run":
		return s.toolExecute(ctx, args, engine.ModeDryRun)
	case "plan.run":
		return s.toolExecute(ctx, args, engine.ModeRun)
	case "plan.schema":
		return &JSONRPCResponse{Result: toolContent(schemaText)}
	default:
		return s.toolExecuteShippedPlan(ctx, tc.Name, tc.Arguments)
	}
}

func (s *Server) toolValidate(file string) *JSONRPCResponse {
	p, err := plan.LoadFile(s.resolvePath(file))
	if err != nil {
		return &JSONRPCResponse{Result: toolError(err.Error())}
	}
	if err := plan.Validate(p, nil); err != nil {
		return &JSONRPCResponse{Result: toolError("Validation failed: " + err.Error())}
	}
	return &JSONRPCResponse{Result: toolContent("Plan is valid.")}
}

func (s *Server) toolExecute(ctx context.Context, args fileArgs, mode engine.Mode) *JSONRPCResponse {
	p, err := plan.LoadFile(s.resolvePath(args.File))
	if err != nil {
		return &JSONRPCResponse{Result: toolError(err.Error())}
	}
	return s.execute(ctx, p, args.Inputs, args.Approve, mode)
}

// toolExecuteShippedPlan finds a plan by name in PlansDir and runs it. The
// arguments object holds the plan's inputs plus an optional "approve".
func (s *Server) toolExecuteShippedPlan(ctx context.Context, name string, rawArgs json.RawMessage) *JSONRPCResponse {
	if s.opts.PlansDir == "" {
		return &JSONRPCResponse{Error: &RPCError{Code: -32602, Message: "Unknown tool: " + name}}
	}
	p, err := plan.Find(s.opts.PlansDir, name)
	if err != nil {
		return &JSONRPCResponse{Error: &RPCError{Code: -32602, Message: "Unknown tool: " + name}}
	}

	var raw map[string]any
	if len(rawArgs) > 0 {
		if err := sonic.Unmarshal(rawArgs, &raw); err != nil {
			return &JSONRPCResponse{Error: &RPCError{Code: -32602, Message: "Invalid arguments"}}
		}
	}
	inputs := map[string]string{}
	approve := false
	for k, v := range raw {
		if k == "approve" {
			approve, _ = v.(bool)
			continue
		}
		if sv, ok := v.(string); ok {
			inputs[k] = sv
		}
	}
	return s.execute(ctx, p, inputs, approve, engine.ModeRun)
}

func (s *Server) execute(ctx context.Context, p *plan.Plan, inputs map[string]string, approve bool, mode engine.Mode) *JSONRPCResponse {
	inputs = plan.ApplyDefaults(p, inputs)
	if err := plan.Validate(p, inputs); err != nil {
		return &JSONRPCResponse{Result: toolError(err.Error())}
	}

	rc := engine.NewRunContext(s.opts.WorkDir, inputs, approve)
	rc.Prompt = strings.Join(p.App.CommandOrDefault(), " ")

	var transcript strings.Builder
	var report *engine.Report
	var err error
	if mode == engine.ModeRun {
		if err := plan.CheckApproval(p, approve); err != nil {
			return &JSONRPCResponse{Result: toolError(err.Error())}
		}
		if s.opts.NewHandle == nil {
			return &JSONRPCResponse{Result: toolError("no application handle configured")}
		}
		h, prompt, herr := s.opts.NewHandle(p.App)
		if herr != nil {
			return &JSONRPCResponse{Result: toolError(herr.Error())}
		}
		rc.Prompt = prompt
		rc.Stream = &transcript
		report, err = engine.Execute(ctx, p, h, rc, mode)
	} else {
		rc.WorkDir = ""
		report, err = engine.Execute(ctx, p, nil, rc, mode)
	}
	if report == nil {
		return &JSONRPCResponse{Result: toolError(err.Error())}
	}

	data, _ := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	items := []map[string]any{}
	if transcript.Len() > 0 {
		items = append(items, map[string]any{"type": "text", "text": transcript.String()})
	}
	items = append(items, map[string]any{"type": "text", "text": string(data)})
	return &JSONRPCResponse{Result: map[string]any{"content": items, "isError": err != nil}}
}

func toolContent(text string) map[string]any {
	return map[string]any{"content": []map[string]any{{"type": "text", "text": text}}}
}

func toolError(text string) map[string]any {
	m := toolContent(text)
	m["isError"] = true
	return m
}

func (s *Server) resolvePath(file string) string {
	if filepath.IsAbs(file) || s.opts.WorkDir == "" {
		return file
	}
	return filepath.Join(s.opts.WorkDir, file)
}

const schemaText = `Plan YAML Schema:
  name: string (required)
  description: string (optional)
  banner: string (first line of output, default "Running <name>...")
  done: string (success marker, default "Done.")
  inputs:
    <name>:
      required: bool
      description: string
      default: string
  app:
    command: [string] (console prefix, default [php, artisan])
    dir: string (application directory)
    env: map[string]string (overrides passed to the console, e.g. SESSION_DRIVER: file)
  tasks: (required, non-empty, run in order)
    - "config:clear"                  # scalar form: name followed by arguments
    - name: migrate                   # mapping form
      args: ["--force", "--database={{inputs.db}}"]
      description: string
      destructive: bool (requires approve)
  Note: the first failing task stops the run; later tasks never start`
