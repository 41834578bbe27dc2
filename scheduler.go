package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	taskSaveCache = "cache-save"
	taskSearch    = "search"

	saveCacheDebounce = 2 * time.Second
	searchDebounce    = 150 * time.Millisecond
)

type delayedTaskMsg struct {
	id  string
	seq int
}

// taskScheduler debounces named delayed tasks. Scheduling an id supersedes
// any pending task with the same id; the superseded timer still fires, but
// its sequence number no longer matches and Fire drops it.
type taskScheduler struct {
	seqs map[string]int
}

func newTaskScheduler() *taskScheduler {
	return &taskScheduler{seqs: make(map[string]int)}
}

func (s *taskScheduler) Schedule(id string, delay time.Duration) tea.Cmd {
	s.seqs[id]++
	seq := s.seqs[id]
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return delayedTaskMsg{id: id, seq: seq}
	})
}

// Fire reports whether the delivered firing is still the current one.
func (s *taskScheduler) Fire(msg delayedTaskMsg) bool {
	return s.seqs[msg.id] == msg.seq
}

func (s *taskScheduler) Cancel(id string) {
	s.seqs[id]++
}
