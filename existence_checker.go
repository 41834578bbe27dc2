package main

import (
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type existenceKickMsg struct{}

type existenceResultMsg struct {
	keys    []string
	results []bool
	err     error
}

// ExistenceChecker answers "is this folder key already cloned locally"
// with as few shell invocations as possible. Requests accumulate in a
// pending queue; Process drains the whole queue into one batched probe.
// Results are cached in the existence map and never evicted, only
// overwritten by a forced recheck.
type ExistenceChecker struct {
	cloneDir string
	existing map[string]bool
	pending  []string
	queued   map[string]bool
	running  bool
}

func NewExistenceChecker(cloneDir string) *ExistenceChecker {
	return &ExistenceChecker{
		cloneDir: cloneDir,
		existing: make(map[string]bool),
		queued:   make(map[string]bool),
	}
}

// Check queues the keys that have no cached answer yet. Processing is
// kicked via a self-addressed message rather than started inline, so
// every request raised during the same Update turn lands in one batch.
func (c *ExistenceChecker) Check(folderKeys []string) tea.Cmd {
	added := false
	for _, key := range folderKeys {
		if key == "" {
			continue
		}
		if _, known := c.existing[key]; known {
			continue
		}
		if c.queued[key] {
			continue
		}
		c.pending = append(c.pending, key)
		c.queued[key] = true
		added = true
	}
	if !added {
		return nil
	}
	return func() tea.Msg {
		return existenceKickMsg{}
	}
}

// ForceRecheck drops the cached answer for one key and queues it again.
// Used after a successful clone, where the answer is expected to flip.
func (c *ExistenceChecker) ForceRecheck(folderKey string) tea.Cmd {
	if folderKey == "" {
		return nil
	}
	delete(c.existing, folderKey)
	return c.Check([]string{folderKey})
}

// Process drains the pending queue into a single batched probe. No-op
// while a batch is running or when nothing is queued; the completion
// handler re-invokes it to pick up keys queued meanwhile.
func (c *ExistenceChecker) Process() tea.Cmd {
	if c.running || len(c.pending) == 0 {
		return nil
	}
	batch := c.pending
	c.pending = nil
	for _, key := range batch {
		delete(c.queued, key)
	}
	c.running = true
	logger.Debug().Int("keys", len(batch)).Msg("existence batch dispatched")
	return checkExistenceCmd(c.cloneDir, batch)
}

// HandleResult maps probe output back into the existence map by position
// and immediately resumes processing.
func (c *ExistenceChecker) HandleResult(msg existenceResultMsg) tea.Cmd {
	if msg.err != nil {
		logger.Warn().Err(msg.err).Msg("existence probe failed")
	}
	for i, key := range msg.keys {
		exists := i < len(msg.results) && msg.results[i]
		c.existing[key] = exists
	}
	c.running = false
	return c.Process()
}

// Exists reports the cached answer for a key and whether one is known.
func (c *ExistenceChecker) Exists(folderKey string) (bool, bool) {
	exists, known := c.existing[folderKey]
	return exists, known
}

// Reset wipes the existence map and any queued work. A batch already in
// flight finishes and repopulates the map with current on-disk truth, so
// its results are safe to keep.
func (c *ExistenceChecker) Reset() {
	c.existing = make(map[string]bool)
	c.pending = nil
	c.queued = make(map[string]bool)
}

// checkExistenceCmd runs one sh invocation that prints Y or N per key, in
// key order, for a directory test under the clone dir. The caller maps
// each output line back to its input position.
func checkExistenceCmd(cloneDir string, keys []string) tea.Cmd {
	return func() tea.Msg {
		out, err := exec.Command("sh", "-c", existenceProbeScript(cloneDir, keys)).Output()
		lines := strings.Split(string(out), "\n")
		results := make([]bool, len(keys))
		for i := range keys {
			if i < len(lines) && strings.TrimSpace(lines[i]) == "Y" {
				results[i] = true
			}
		}
		return existenceResultMsg{keys: keys, results: results, err: err}
	}
}

func existenceProbeScript(cloneDir string, keys []string) string {
	var b strings.Builder
	for _, key := range keys {
		path := filepath.Join(cloneDir, key)
		b.WriteString("if [ -d " + shellQuote(path) + " ]; then echo Y; else echo N; fi; ")
	}
	return b.String()
}
