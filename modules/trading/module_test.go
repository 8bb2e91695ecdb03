package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

func newSandbox(t *testing.T, config map[string]any) capability.Environment {
	t.Helper()
	env, err := New(config)
	require.NoError(t, err)
	return env
}

func TestDeterministicMarket(t *testing.T) {
	run := func() []float64 {
		env := newSandbox(t, map[string]any{"seed": 42})
		var prices []float64
		for i := 0; i < 10; i++ {
			step, err := env.Execute(context.Background(), "HOLD")
			require.NoError(t, err)
			prices = append(prices, step.NextState["price"].(float64))
		}
		return prices
	}
	assert.Equal(t, run(), run())
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := newSandbox(t, map[string]any{"seed": 1})
	b := newSandbox(t, map[string]any{"seed": 2})

	stepA, err := a.Execute(context.Background(), "HOLD")
	require.NoError(t, err)
	stepB, err := b.Execute(context.Background(), "HOLD")
	require.NoError(t, err)
	assert.NotEqual(t, stepA.NextState["price"], stepB.NextState["price"])
}

func TestBuyAndSellMoveThePortfolio(t *testing.T) {
	env := newSandbox(t, nil)

	step, err := env.Execute(context.Background(), "BUY")
	require.NoError(t, err)
	assert.Equal(t, 10.0, step.NextState["shares"])
	assert.Equal(t, initialCash-tradeLot*initialPrice, step.NextState["cash"])

	step, err = env.Execute(context.Background(), "SELL")
	require.NoError(t, err)
	assert.Equal(t, 0.0, step.NextState["shares"])
}

func TestSellWithoutSharesIsNoop(t *testing.T) {
	env := newSandbox(t, nil)

	step, err := env.Execute(context.Background(), "SELL")
	require.NoError(t, err)
	assert.Equal(t, 0.0, step.NextState["shares"])
	assert.Equal(t, initialCash, step.NextState["cash"])
}

func TestLenientActionParsing(t *testing.T) {
	env := newSandbox(t, nil)

	// Prose around the verb still trades.
	step, err := env.Execute(context.Background(), "I would buy some shares here.")
	require.NoError(t, err)
	assert.Equal(t, 10.0, step.NextState["shares"])

	// Unrecognized text trades nothing.
	before := step.NextState["shares"]
	step, err = env.Execute(context.Background(), "[logical] conclusion #3")
	require.NoError(t, err)
	assert.Equal(t, before, step.NextState["shares"])
}

func TestRewardIsPortfolioValueDelta(t *testing.T) {
	env := newSandbox(t, map[string]any{"seed": 7})

	var total float64
	var lastValue = initialCash
	for i := 0; i < 5; i++ {
		step, err := env.Execute(context.Background(), "BUY")
		require.NoError(t, err)
		total += step.Reward
		lastValue = step.NextState["portfolio_value"].(float64)
	}
	// Rewards telescope to the overall value change.
	assert.InDelta(t, lastValue-initialCash, total, 1e-9)
}

func TestDoneAtMaxSteps(t *testing.T) {
	env := newSandbox(t, map[string]any{
		"initial_state": map[string]any{"max_steps": 3},
	})

	for i := 0; i < 2; i++ {
		step, err := env.Execute(context.Background(), "HOLD")
		require.NoError(t, err)
		assert.False(t, step.Done)
	}
	step, err := env.Execute(context.Background(), "HOLD")
	require.NoError(t, err)
	assert.True(t, step.Done)
}

func TestVerifyScoreBounds(t *testing.T) {
	env := newSandbox(t, nil)

	actions := []string{"BUY", "SELL", "HOLD", "garbage", ""}
	for i := 0; i < 20; i++ {
		c := env.GenerateCase()
		for _, action := range actions {
			score := env.VerifyScore(action, c)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
		_, err := env.Execute(context.Background(), actions[i%len(actions)])
		require.NoError(t, err)
	}

	// Selling with no position is worthless, holding is neutral.
	fresh := newSandbox(t, nil)
	c := fresh.GenerateCase()
	assert.Equal(t, 0.0, fresh.VerifyScore("SELL", c))
	assert.Equal(t, 0.5, fresh.VerifyScore("HOLD", c))
}

func TestModuleRegistersSandboxType(t *testing.T) {
	reg := capability.NewRegistry()
	(&Module{}).Register(reg)

	env, err := reg.NewEnvironment("trading", map[string]any{"seed": 5})
	require.NoError(t, err)
	assert.NotNil(t, env)
}

func TestExecuteHonorsContext(t *testing.T) {
	env := newSandbox(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.Execute(ctx, "HOLD")
	assert.ErrorIs(t, err, context.Canceled)
}
