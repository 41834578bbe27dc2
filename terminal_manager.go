package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

var (
	tabTitleMu   sync.Mutex
	lastTabTitle string
)

func setITermHQXTab() {
	setITermTab("hqx")
}

func setITermHostTab(host string) {
	if host = strings.TrimSpace(host); host == "" {
		setITermHQXTab()
		return
	}
	setITermTab("hqx - " + host)
}

// itermTabTarget reports whether tab escapes should be emitted at all, and
// whether they will travel through a tmux passthrough wrapper.
func itermTabTarget() (inTmux bool, ok bool) {
	if iTermIntegrationDisabled() {
		return false, false
	}
	if strings.TrimSpace(os.Getenv("TMUX")) != "" {
		return true, true
	}
	return false, strings.TrimSpace(os.Getenv("TERM_PROGRAM")) == "iTerm.app"
}

func setITermTab(title string) {
	inTmux, ok := itermTabTarget()
	if !ok {
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "hqx"
	}
	if shouldSkipTabTitleUpdate(title) {
		return
	}
	if !inTmux {
		// tmux owns window titles inside a session; set them only when direct.
		for _, code := range []string{"0", "1", "2"} {
			writeTerminalEscape("\x1b]" + code + ";" + title + "\x07")
		}
	}
	writeTerminalEscape("\x1b]1337;SetTabColor=rgb:3d/2a/5c\x07")
	channels := [3][2]string{{"red", "61"}, {"green", "42"}, {"blue", "92"}}
	for _, c := range channels {
		writeTerminalEscape("\x1b]6;1;bg;" + c[0] + ";brightness;" + c[1] + "\x07")
	}
}

func resetITermTabColor() {
	if _, ok := itermTabTarget(); !ok {
		return
	}
	// An empty SetTabColor restores the terminal default.
	writeTerminalEscape("\x1b]1337;SetTabColor=\x07")
}

// writeTerminalEscape emits seq on stdout. Inside tmux the sequence is
// wrapped in a passthrough envelope so iTerm still receives it.
func writeTerminalEscape(seq string) {
	if seq == "" {
		return
	}
	if strings.TrimSpace(os.Getenv("TMUX")) != "" {
		fmt.Fprint(os.Stdout, "\x1bPtmux;", strings.ReplaceAll(seq, "\x1b", "\x1b\x1b"), "\x1b\\")
		return
	}
	fmt.Fprint(os.Stdout, seq)
}

// shouldSkipTabTitleUpdate dedupes consecutive identical titles so UI
// redraws do not spam escape sequences.
func shouldSkipTabTitleUpdate(title string) bool {
	tabTitleMu.Lock()
	defer tabTitleMu.Unlock()
	if lastTabTitle == title {
		return true
	}
	lastTabTitle = title
	return false
}
