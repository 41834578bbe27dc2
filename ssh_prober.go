package main

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	noReposMessage           = "No repos found or access denied"
	sshConnectTimeoutSeconds = "2"
)

// greetingMarkers appear in the banner chatter git servers print before or
// instead of a repo listing (gitolite, Gitea, GitHub-style SSH greetings).
var greetingMarkers = []string{
	"Welcome",
	"hello",
	"PTY",
	"interactive",
	"Hi ",
	"You've successfully",
}

var bareRepoPattern = regexp.MustCompile(`^[\w\-./]+$`)

// parseRepoList extracts repository names from combined probe output.
// Two line shapes count: gitolite-style "<access-flags>\t<name>" and a
// bare repo path token. Everything else, greeting lines first, is dropped.
func parseRepoList(output string) []string {
	repos := make([]string, 0, 16)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || containsGreeting(line) {
			continue
		}
		if idx := strings.LastIndex(line, "\t"); idx >= 0 {
			name := strings.TrimSpace(line[idx+1:])
			if name != "" {
				repos = append(repos, name)
			}
			continue
		}
		token := strings.TrimSpace(line)
		if bareRepoPattern.MatchString(token) {
			repos = append(repos, token)
		}
	}
	return repos
}

func containsGreeting(line string) bool {
	for _, marker := range greetingMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func sshProbeArgs(user string, host string) []string {
	return []string{
		"-o", "ConnectTimeout=" + sshConnectTimeoutSeconds,
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=no",
		user + "@" + host,
	}
}

type fetchResultMsg struct {
	host       string
	generation int
	slot       int
	repos      []string
	probeErr   error
}

// fetchReposCmd probes one host for the repositories it serves. Git
// servers routinely close the connection with a non-zero status after
// printing their listing, so the output is parsed regardless of the exit
// error; the error only feeds the log.
func fetchReposCmd(user string, host string, generation int, slot int) tea.Cmd {
	return func() tea.Msg {
		out, err := exec.Command("ssh", sshProbeArgs(user, host)...).CombinedOutput()
		return fetchResultMsg{
			host:       host,
			generation: generation,
			slot:       slot,
			repos:      parseRepoList(string(out)),
			probeErr:   commandErrorWithOutput(err, out),
		}
	}
}

// commandErrorWithOutput prefers captured process output over the bare
// exit error. A nil err passes through as nil.
func commandErrorWithOutput(err error, output []byte) error {
	if err == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, trimmed)
}
