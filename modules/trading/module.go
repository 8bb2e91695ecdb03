// Package trading provides a simulated-market sandbox: the built-in
// environment implementation used by the example workflows and the CLI's
// dry-run mode. Price movement is a seeded random walk, so a given seed
// always produces the same market.
package trading

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// Module registers the sandbox type with an application's registry.
type Module struct{}

// Register implements capability.Module.
func (m *Module) Register(r *capability.Registry) {
	r.RegisterSandbox("trading", New)
}

const (
	initialCash  = 100000.0
	initialPrice = 100.0
	tradeLot     = 10.0
)

// Sandbox is one market simulation. Each environment node owns a private
// instance, so two market nodes in the same workflow never share state.
type Sandbox struct {
	mu sync.Mutex

	rng    *rand.Rand
	step   int
	price  float64
	cash   float64
	shares float64
	// lastValue is the portfolio value before the most recent action;
	// reward is the value delta across one step.
	lastValue float64
	maxSteps  int
}

// New builds a sandbox from an environment node's config. Recognized
// options: seed (int, default 1) and max_steps via initial_state.
func New(config map[string]any) (capability.Environment, error) {
	seed := int64(1)
	if s, ok := config["seed"].(int); ok {
		seed = int64(s)
	}

	maxSteps := 0
	if init, ok := config["initial_state"].(map[string]any); ok {
		if ms, ok := init["max_steps"].(int); ok {
			maxSteps = ms
		}
	}

	s := &Sandbox{
		rng:      rand.New(rand.NewSource(seed)),
		price:    initialPrice,
		cash:     initialCash,
		maxSteps: maxSteps,
	}
	s.lastValue = s.portfolioValue()
	return s, nil
}

// GenerateCase returns the market observation the next action is judged
// against.
func (s *Sandbox) GenerateCase() capability.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return capability.Case{
		"symbol":          "SAND",
		"price":           s.price,
		"cash":            s.cash,
		"shares":          s.shares,
		"portfolio_value": s.portfolioValue(),
		"step":            s.step,
	}
}

// Execute applies a trading action and advances the market one tick. The
// reward is the resulting change in portfolio value.
func (s *Sandbox) Execute(ctx context.Context, action string) (capability.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return capability.StepResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An unrecognized action trades nothing, mirroring a HOLD. The
	// decision text often wraps the verb in prose, so parsing is lenient
	// and the penalty for noise shows up in VerifyScore, not here.
	switch parseAction(action) {
	case "BUY":
		cost := tradeLot * s.price
		if s.cash >= cost {
			s.cash -= cost
			s.shares += tradeLot
		}
	case "SELL":
		if s.shares >= tradeLot {
			s.cash += tradeLot * s.price
			s.shares -= tradeLot
		}
	}

	// Seeded random walk with mild drift, floored so the price stays
	// positive.
	s.price = math.Max(1.0, s.price*(1.0+(s.rng.Float64()-0.48)*0.04))
	s.step++

	value := s.portfolioValue()
	reward := value - s.lastValue
	s.lastValue = value

	done := s.maxSteps > 0 && s.step >= s.maxSteps
	return capability.StepResult{
		NextState: map[string]any{
			"price":           s.price,
			"cash":            s.cash,
			"shares":          s.shares,
			"portfolio_value": value,
			"step":            s.step,
		},
		Reward: reward,
		Done:   done,
	}, nil
}

// VerifyScore rates an action against a case in [0, 1]. Holding scores a
// neutral 0.5; buying scores higher the more cash is available, selling the
// more shares are held.
func (s *Sandbox) VerifyScore(action string, c capability.Case) float64 {
	switch parseAction(action) {
	case "BUY":
		cash, _ := c["cash"].(float64)
		price, _ := c["price"].(float64)
		if price <= 0 || cash < tradeLot*price {
			return 0.0
		}
		return math.Min(1.0, 0.5+cash/(2*initialCash))
	case "SELL":
		shares, _ := c["shares"].(float64)
		if shares < tradeLot {
			return 0.0
		}
		return math.Min(1.0, 0.5+shares/200.0)
	case "HOLD":
		return 0.5
	}
	return 0.0
}

func (s *Sandbox) portfolioValue() float64 {
	return s.cash + s.shares*s.price
}

// parseAction extracts the trade verb from free-form decision text. Model
// responses rarely come back as a bare verb, so the first recognized verb
// found in the text wins. Unknown text yields "".
func parseAction(action string) string {
	upper := strings.ToUpper(action)
	for _, verb := range []string{"BUY", "SELL", "HOLD"} {
		if strings.Contains(upper, verb) {
			return verb
		}
	}
	return ""
}
