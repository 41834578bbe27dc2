package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const tmuxStatusIntervalSeconds = "10"

// ensureFreshTmuxSession relaunches hqx inside a dedicated tmux session
// when invoked from a plain terminal. Reports whether the nested run
// handled everything.
func ensureFreshTmuxSession(args []string) (bool, error) {
	if tmuxIntegrationDisabled() || strings.TrimSpace(os.Getenv("TMUX")) != "" {
		return false, nil
	}
	if _, err := exec.LookPath("tmux"); err != nil {
		return false, nil
	}

	bin, err := resolveSelfBinary(args)
	if err != nil {
		return false, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return false, err
	}

	setITermHQXTab()

	session := fmt.Sprintf("hqx-%d", time.Now().UnixNano())
	tmuxArgs := append([]string{"new-session", "-s", session, "-c", cwd, bin}, args[1:]...)
	cmd := exec.Command("tmux", tmuxArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return false, err
	}
	return true, nil
}

func resolveSelfBinary(args []string) (string, error) {
	arg0 := strings.TrimSpace(args[0])
	switch {
	case arg0 == "":
		return "", fmt.Errorf("unable to resolve executable path")
	case filepath.IsAbs(arg0):
		return arg0, nil
	case strings.ContainsRune(arg0, os.PathSeparator):
		return filepath.Abs(arg0)
	}
	return exec.LookPath(arg0)
}

func tmuxAvailable() bool {
	if tmuxIntegrationDisabled() || strings.TrimSpace(os.Getenv("TMUX")) == "" {
		return false
	}
	_, err := exec.LookPath("tmux")
	return err == nil
}

// openTmuxSSHWindow opens an interactive ssh session to the host in a
// new tmux window named after it. hqx keeps running in its own window.
func openTmuxSSHWindow(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host required")
	}
	return exec.Command("tmux", "new-window", "-n", host, "ssh", host).Run()
}

func setStartupStatusBanner(hostsFile string) {
	if strings.TrimSpace(os.Getenv("TMUX")) == "" {
		return
	}
	ensureHQXSessionDefaults()
	setStatusBanner(renderBanner(hostsFile))
}

func renderBanner(detail string) string {
	label := "HQX"
	if detail = strings.TrimSpace(detail); detail != "" {
		label += "  " + detail
	}
	return bannerStyle.Render(label)
}

func setStatusBanner(banner string) {
	banner = stripANSI(banner)
	if strings.TrimSpace(banner) == "" {
		return
	}
	sessionID, err := currentSessionID()
	if err != nil || sessionID == "" {
		return
	}
	configureTmuxStatus(sessionID, "200", tmuxStatusIntervalSeconds)
	tmuxSetOption(sessionID, "status-left", " "+banner+" ")
}

func currentSessionID() (string, error) {
	out, err := exec.Command("tmux", "display-message", "-p", "#{session_id}").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func clearScreen() {
	_ = exec.Command("tmux", "clear-history").Run()
	fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
}

// stripANSI drops escape sequences, which terminate at the first ASCII
// letter after ESC.
func stripANSI(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	inEscape := false
	for _, r := range value {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shellQuote wraps value for safe interpolation into a POSIX shell command.
func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func ensureHQXSessionDefaults() {
	sessionID, err := currentSessionID()
	if err != nil || sessionID == "" {
		return
	}
	// Session dies with the terminal client.
	tmuxSetOption(sessionID, "destroy-unattached", "on")
	// Mouse off so plain terminal copy keeps working.
	tmuxSetOption(sessionID, "mouse", "off")
	// Option+arrows cycle between the hqx window and open ssh windows.
	_ = exec.Command("tmux", "bind-key", "-n", "M-Left", "previous-window").Run()
	_ = exec.Command("tmux", "bind-key", "-n", "M-Right", "next-window").Run()
}

func configureTmuxStatus(sessionID string, leftLength string, interval string) {
	if strings.TrimSpace(interval) == "" {
		interval = tmuxStatusIntervalSeconds
	}
	options := [][2]string{
		{"status", "1"},
		{"status-position", "bottom"},
		{"status-justify", "left"},
		{"status-style", "fg=#d0d0d0,bg=#3d2a5c"},
		{"status-left-length", leftLength},
		{"status-right", ""},
		{"status-interval", interval},
	}
	for _, opt := range options {
		tmuxSetOption(sessionID, opt[0], opt[1])
	}
}

func tmuxSetOption(sessionID string, key string, value string) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	_ = exec.Command("tmux", "set-option", "-q", "-t", sessionID, key, value).Run()
}
