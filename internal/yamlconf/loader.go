// Package yamlconf loads workflow definitions from YAML files into the
// format-agnostic config model. It accepts the same structure as the HCL
// loader:
//
//	workflow:
//	  name: trading
//	  rounds: 5
//	nodes:
//	  - type: environment
//	    name: market
//	    config:
//	      sandbox: trading
//	edges:
//	  - from: market
//	    to: trader
//	  - from: optimizer
//	    to: market
//	    feedback: true
package yamlconf

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NoakLiu/SandGraphX/internal/config"
	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML workflow loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Workflow *workflowDoc `yaml:"workflow"`
	Nodes    []*nodeDoc   `yaml:"nodes"`
	Edges    []*edgeDoc   `yaml:"edges"`
}

type workflowDoc struct {
	Name   string `yaml:"name"`
	Rounds int    `yaml:"rounds"`
	Mode   string `yaml:"mode"`
}

type nodeDoc struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

type edgeDoc struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Feedback bool   `yaml:"feedback"`
}

// Load parses one YAML workflow file and translates it into the model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to decode workflow file %s: %w", path, err)
	}
	if root.Workflow == nil {
		return nil, fmt.Errorf("workflow file %s has no 'workflow' mapping", path)
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
		cfg := n.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		wf.Nodes = append(wf.Nodes, &config.Node{Type: n.Type, Name: n.Name, Config: cfg})
	}
	for _, e := range root.Edges {
		wf.Edges = append(wf.Edges, &config.Edge{From: e.From, To: e.To, Feedback: e.Feedback})
	}

	logger.Debug("YAML loader finished.", "workflow", wf.Name, "nodes", len(wf.Nodes), "edges", len(wf.Edges))
	return &config.Model{Workflow: wf}, nil
}
