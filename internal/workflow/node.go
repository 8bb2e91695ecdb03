package workflow

// NodeType tags a node with the capability contract it is dispatched to.
type NodeType string

const (
	// NodeTypeEnvironment is an isolated task environment: it generates
	// cases, executes actions, and scores them.
	NodeTypeEnvironment NodeType = "environment"
	// NodeTypeDecision is backed by the shared language-model manager.
	NodeTypeDecision NodeType = "decision"
	// NodeTypePolicyUpdate is backed by the reinforcement-learning trainer.
	NodeTypePolicyUpdate NodeType = "policy_update"
	// NodeTypeCustom runs a caller-registered handler function.
	NodeTypeCustom NodeType = "custom"
)

// Valid reports whether t is one of the four known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeEnvironment, NodeTypeDecision, NodeTypePolicyUpdate, NodeTypeCustom:
		return true
	}
	return false
}

// Node is an immutable vertex of the workflow graph. It carries identity,
// the capability type tag, and the static configuration merged into the
// node's input every round. It holds no execution logic or state.
type Node struct {
	Name   string
	Type   NodeType
	Config map[string]any

	// index is the AddNode insertion position, used as the deterministic
	// tie-breaker when scheduling simultaneously-eligible nodes.
	index int
}

// allowedOptions enumerates the accepted config keys per node type. Unknown
// keys are rejected at AddNode time rather than silently ignored, since a
// typo in a node option is otherwise invisible until a round misbehaves.
// Custom nodes are exempt: their config is opaque to the engine and passed
// through to the registered handler untouched.
var allowedOptions = map[NodeType]map[string]bool{
	NodeTypeEnvironment: {
		"sandbox":        true,
		"seed":           true,
		"initial_state":  true,
		"default_action": true,
	},
	NodeTypeDecision: {
		"role":            true,
		"reasoning_type":  true,
		"temperature":     true,
		"max_length":      true,
		"prompt_template": true,
	},
	NodeTypePolicyUpdate: {
		"learning_rate":   true,
		"batch_size":      true,
		"buffer_capacity": true,
	},
}

// validateOptions checks cfg against the node type's accepted option set.
func validateOptions(name string, typ NodeType, cfg map[string]any) error {
	allowed, ok := allowedOptions[typ]
	if !ok {
		return nil
	}
	for key := range cfg {
		if !allowed[key] {
			return &UnknownOptionError{Node: name, Type: typ, Option: key}
		}
	}
	return nil
}
