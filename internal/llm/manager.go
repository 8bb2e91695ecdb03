// Package llm provides the shared language-model manager behind every
// decision node. The model client is a global, singly-owned resource: nodes
// never hold it directly, they are registered with the manager and route
// their prompts through it.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// Client is a single inference backend. Calls may be long-latency; the
// manager serializes them so one backend instance never sees concurrent
// generations.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts map[string]any) (*capability.Response, error)
}

// nodeEntry tracks one registered decision node and its usage.
type nodeEntry struct {
	opts            map[string]any
	registeredAt    time.Time
	generationCount int
	lastUsed        time.Time
	totalTokens     int
}

// Manager implements capability.Decision over a single shared Client.
type Manager struct {
	client Client

	mu               sync.Mutex
	nodes            map[string]*nodeEntry
	totalGenerations int
}

// NewManager wraps a client in a shared manager.
func NewManager(client Client) *Manager {
	return &Manager{
		client: client,
		nodes:  make(map[string]*nodeEntry),
	}
}

// Register records a decision node and its default generation options.
// Registering the same node again replaces its options.
func (m *Manager) Register(nodeID string, opts map[string]any) error {
	if nodeID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if opts == nil {
		opts = map[string]any{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[nodeID] = &nodeEntry{opts: opts, registeredAt: time.Now()}
	return nil
}

// Generate produces a response for a registered node. Call options override
// the node's registered defaults key by key.
func (m *Manager) Generate(ctx context.Context, nodeID, prompt string, opts map[string]any) (*capability.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("decision node '%s' is not registered", nodeID)
	}

	merged := make(map[string]any, len(entry.opts)+len(opts))
	for k, v := range entry.opts {
		merged[k] = v
	}
	for k, v := range opts {
		merged[k] = v
	}

	resp, err := m.client.Generate(ctx, prompt, merged)
	if err != nil {
		return nil, err
	}

	entry.generationCount++
	entry.lastUsed = time.Now()
	entry.totalTokens += len(strings.Fields(resp.Text))
	m.totalGenerations++

	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["node_id"] = nodeID
	resp.Metadata["global_generation_count"] = m.totalGenerations
	return resp, nil
}

// Stats returns global usage statistics plus a per-node breakdown.
func (m *Manager) Stats() capability.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	perNode := make(map[string]any, len(m.nodes))
	for id, entry := range m.nodes {
		perNode[id] = map[string]any{
			"generation_count": entry.generationCount,
			"total_tokens":     entry.totalTokens,
		}
	}
	return capability.Stats{
		"backend":           m.client.Name(),
		"total_generations": m.totalGenerations,
		"registered_nodes":  len(m.nodes),
		"node_usage":        perNode,
	}
}
