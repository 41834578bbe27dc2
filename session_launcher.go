package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type SessionLauncher struct{}

func NewSessionLauncher() *SessionLauncher {
	return &SessionLauncher{}
}

type SessionResult struct {
	Started bool
	Warning string
}

// RunSSH opens an interactive session to the host. Inside tmux the
// session gets its own window; outside, ssh takes over the current
// terminal until it exits.
func (l *SessionLauncher) RunSSH(host string) (SessionResult, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return SessionResult{}, errors.New("host required")
	}

	if tmuxAvailable() {
		if err := openTmuxSSHWindow(host); err != nil {
			return SessionResult{}, err
		}
		logger.Info().Str("host", host).Msg("ssh window opened")
		return SessionResult{Started: true}, nil
	}

	clearScreen()
	setITermHostTab(host)
	logger.Info().Str("host", host).Msg("ssh session started")

	cmd := exec.Command("ssh", host)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	result := SessionResult{Started: true, Warning: "tmux unavailable; running ssh in current terminal"}
	if err := cmd.Run(); err != nil {
		return result, fmt.Errorf("ssh session failed: %w", err)
	}
	return result, nil
}
