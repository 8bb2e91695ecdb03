package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// reasoningTemplates sketch the chain each mock response claims to follow.
var reasoningTemplates = map[string]string{
	"mathematical": "analyze problem -> build model -> solve -> verify",
	"logical":      "examine premises -> apply rules -> derive conclusion",
	"strategic":    "assess goal -> weigh options -> evaluate risk -> pick best",
	"creative":     "understand problem -> diverge -> generate -> assess feasibility",
}

// confidenceCurve is the per-reasoning-type confidence model: base plus
// slope per applied policy update, capped at 0.95. Mathematical reasoning
// starts confident and improves slowly; creative starts low and improves
// fastest.
var confidenceCurve = map[string]struct{ base, slope float64 }{
	"mathematical": {0.80, 0.010},
	"strategic":    {0.70, 0.015},
	"creative":     {0.60, 0.020},
	"logical":      {0.75, 0.012},
}

// MockClient is a deterministic in-process backend for tests and dry runs.
// Its confidence rises with the number of policy updates applied to it,
// imitating a model that improves as training progresses.
type MockClient struct {
	mu              sync.Mutex
	generationCount int
	updateCount     int

	// CannedText, when non-empty, is returned verbatim for every prompt.
	// Tests use it to drive environments with a fixed action.
	CannedText string
}

// NewMockClient returns a fresh mock backend.
func NewMockClient() *MockClient { return &MockClient{} }

// Name implements Client.
func (c *MockClient) Name() string { return "mock" }

// Generate implements Client. The response depends only on the prompt, the
// options, and the counters, so identical call sequences produce identical
// outputs.
func (c *MockClient) Generate(_ context.Context, prompt string, opts map[string]any) (*capability.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationCount++

	reasoningType, _ := opts["reasoning_type"].(string)
	if _, known := reasoningTemplates[reasoningType]; !known {
		// Fall back to inferring the reasoning style from the prompt.
		switch {
		case containsAny(prompt, "calculate", "equation", "math"):
			reasoningType = "mathematical"
		case containsAny(prompt, "strategy", "plan", "choose", "trade"):
			reasoningType = "strategic"
		case containsAny(prompt, "invent", "create", "novel"):
			reasoningType = "creative"
		default:
			reasoningType = "logical"
		}
	}
	reasoning := reasoningTemplates[reasoningType]

	text := c.CannedText
	if text == "" {
		text = fmt.Sprintf("[%s] conclusion #%d for prompt of %d chars",
			reasoningType, c.generationCount, len(prompt))
	}

	curve := confidenceCurve[reasoningType]
	confidence := curve.base + float64(c.updateCount)*curve.slope
	if confidence > 0.95 {
		confidence = 0.95
	}

	return &capability.Response{
		Text:       text,
		Confidence: confidence,
		Reasoning:  reasoning,
		Metadata: map[string]any{
			"backend":          "mock",
			"generation_count": c.generationCount,
			"update_count":     c.updateCount,
			"prompt_length":    len(prompt),
			"reasoning_type":   reasoningType,
		},
	}, nil
}

// RecordUpdate bumps the update counter. The trainer calls this after each
// policy update so subsequent generations reflect the new policy.
func (c *MockClient) RecordUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCount++
}

// Generations returns how many responses the client has produced.
func (c *MockClient) Generations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationCount
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
