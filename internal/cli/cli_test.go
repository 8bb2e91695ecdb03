package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-workflow", "wf.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "wf.hcl", cfg.WorkflowPath)
	assert.Equal(t, 0, cfg.Rounds)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 60*time.Second, cfg.NodeTimeout)
	assert.False(t, cfg.StrictRounds)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mock", cfg.Backend)
}

func TestParseWorkflowPathSources(t *testing.T) {
	var out bytes.Buffer

	t.Run("shorthand flag", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-w", "short.yaml"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "short.yaml", cfg.WorkflowPath)
	})

	t.Run("positional argument", func(t *testing.T) {
		cfg, _, err := Parse([]string{"pos.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "pos.hcl", cfg.WorkflowPath)
	})

	t.Run("long flag wins over positional", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-workflow", "flag.hcl", "pos.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "flag.hcl", cfg.WorkflowPath)
	})
}

func TestParseNoPathShowsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParseOverrides(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"-workflow", "wf.yaml",
		"-rounds", "7",
		"-workers", "2",
		"-node-timeout", "5s",
		"-strict-rounds",
		"-log-format", "JSON",
		"-log-level", "DEBUG",
		"-backend", "http",
		"-backend-url", "http://localhost:8000",
		"-api-key", "k",
		"-model", "m",
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Rounds)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.NodeTimeout)
	assert.True(t, cfg.StrictRounds)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http", cfg.Backend)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "m", cfg.Model)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-bogus"}, "flag provided but not defined"},
		{"bad log format", []string{"-log-format", "xml", "wf.hcl"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "verbose", "wf.hcl"}, "invalid log-level"},
		{"bad backend", []string{"-backend", "grpc", "wf.hcl"}, "Backend must be"},
		{"http backend without url", []string{"-backend", "http", "wf.hcl"}, "BackendURL is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.True(t, strings.Contains(exitErr.Message, tc.want),
				"message %q should contain %q", exitErr.Message, tc.want)
		})
	}
}
