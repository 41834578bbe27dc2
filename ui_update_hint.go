package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// interactiveUpdateHintMsg carries the footer version line for the UI.
type interactiveUpdateHintMsg struct {
	hint    string
	isError bool
}

// checkInteractiveUpdateHintCmd resolves the version hint off the UI loop
// so startup rendering never waits on the network.
func checkInteractiveUpdateHintCmd() tea.Cmd {
	return func() tea.Msg {
		cur := strings.TrimSpace(currentVersion())
		ctx, cancel := context.WithTimeout(context.Background(), startupUpdateTimeout)
		defer cancel()

		result, err := checkForUpdatesWithThrottle(ctx, cur, defaultUpdateInterval)
		hint, isError := formatInteractiveUpdateHint(cur, result, err)
		return interactiveUpdateHintMsg{hint: hint, isError: isError}
	}
}

func formatInteractiveUpdateHint(current string, result updateCheckResult, err error) (string, bool) {
	if current = strings.TrimSpace(current); current == "" {
		current = "unknown"
	}
	switch {
	case err != nil:
		return "hqx update check failed: " + err.Error(), true
	case result.UpdateAvailable:
		return "hqx " + result.CurrentVersion + " -> " + result.LatestVersion + " available. Run: hqx update", false
	}
	return "hqx " + current, false
}
