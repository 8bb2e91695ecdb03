// Package hclconf loads workflow definitions from HCL files into the
// format-agnostic config model.
//
// A workflow file looks like:
//
//	workflow "trading" {
//	  rounds = 5
//	}
//
//	node "environment" "market" {
//	  sandbox        = "trading"
//	  seed           = 42
//	  default_action = "HOLD"
//	}
//
//	node "decision" "trader" {
//	  role        = "trading strategist"
//	  temperature = 0.7
//	}
//
//	node "policy_update" "optimizer" {}
//
//	edge { from = "market",  to = "trader" }
//	edge { from = "trader",  to = "optimizer" }
//	edge { from = "optimizer", to = "market", feedback = true }
package hclconf

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/NoakLiu/SandGraphX/internal/config"
	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL workflow loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of a workflow file.
type fileRoot struct {
	Workflow *workflowBlock `hcl:"workflow,block"`
	Nodes    []*nodeBlock   `hcl:"node,block"`
	Edges    []*edgeBlock   `hcl:"edge,block"`
}

type workflowBlock struct {
	Name   string `hcl:"name,label"`
	Rounds int    `hcl:"rounds,optional"`
	Mode   string `hcl:"mode,optional"`
}

// nodeBlock keeps its body raw: node options are free-form attributes
// validated later against the node type's option set.
type nodeBlock struct {
	Type    string   `hcl:"type,label"`
	Name    string   `hcl:"name,label"`
	Options hcl.Body `hcl:",remain"`
}

type edgeBlock struct {
	From     string `hcl:"from"`
	To       string `hcl:"to"`
	Feedback bool   `hcl:"feedback,optional"`
}

// Load parses one HCL workflow file and translates it into the model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode workflow file %s: %w", path, diags)
	}
	if root.Workflow == nil {
		return nil, fmt.Errorf("workflow file %s has no 'workflow' block", path)
	}

	wf := &config.Workflow{
		Name:       root.Workflow.Name,
		Rounds:     root.Workflow.Rounds,
		SinglePass: root.Workflow.Mode == "single_pass",
	}
	if wf.Rounds <= 0 {
		wf.Rounds = 1
	}
	if root.Workflow.Mode != "" && root.Workflow.Mode != "single_pass" && root.Workflow.Mode != "iterative" {
		return nil, fmt.Errorf("workflow '%s' has unknown mode '%s'", wf.Name, root.Workflow.Mode)
	}

	for _, n := range root.Nodes {
		cfg, err := l.decodeOptions(n.Options)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", n.Name, err)
		}
		wf.Nodes = append(wf.Nodes, &config.Node{Type: n.Type, Name: n.Name, Config: cfg})
	}
	for _, e := range root.Edges {
		wf.Edges = append(wf.Edges, &config.Edge{From: e.From, To: e.To, Feedback: e.Feedback})
	}

	logger.Debug("HCL loader finished.", "workflow", wf.Name, "nodes", len(wf.Nodes), "edges", len(wf.Edges))
	return &config.Model{Workflow: wf}, nil
}

// decodeOptions evaluates every attribute of a node body into plain Go
// values.
func (l *Loader) decodeOptions(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid node options: %w", diags)
	}

	cfg := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("option '%s': %w", name, diags)
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("option '%s': %w", name, err)
		}
		cfg[name] = goVal
	}
	return cfg, nil
}
