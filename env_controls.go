package main

import (
	"os"
	"strings"
)

// Env flags accept the usual truthy spellings; anything else is off.
var truthyEnvValues = map[string]bool{
	"1":    true,
	"true": true,
	"yes":  true,
	"on":   true,
}

func envFlagEnabled(name string) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	return truthyEnvValues[value]
}

// HQX_DISABLE_TMUX keeps hqx in the invoking terminal instead of a managed
// tmux session.
func tmuxIntegrationDisabled() bool {
	return envFlagEnabled("HQX_DISABLE_TMUX")
}

// HQX_DISABLE_ITERM suppresses tab title and tab color escapes.
func iTermIntegrationDisabled() bool {
	return envFlagEnabled("HQX_DISABLE_ITERM")
}

// HQX_TEST_MODE bypasses the interactive UI for scripted runs.
func testModeEnabled() bool {
	return envFlagEnabled("HQX_TEST_MODE")
}
