package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	errGitNotInstalled = errors.New("git is not installed")
	errCloneConflict   = errors.New("clone already queued for this folder")
	errEmptyRepoName   = errors.New("repository name is empty")
)

type CloneTask struct {
	Host     string
	RepoName string
	CloneURL string
}

// folderKeyForRepo reduces a repo name to the directory git clone will
// create: the last path segment with a trailing .git stripped. Two repo
// names with the same folder key collide on disk and are treated as the
// same local artifact.
func folderKeyForRepo(repoName string) string {
	name := strings.TrimSpace(repoName)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// CloneSerializer runs clone operations strictly one at a time in FIFO
// order. Folder keys dedupe requests: while a task for a key is queued or
// running, further requests for that key are rejected outright.
type CloneSerializer struct {
	cloneDir string
	sshUser  string
	queue    []CloneTask
	active   map[string]bool
	running  bool
}

func NewCloneSerializer(cloneDir string, sshUser string) *CloneSerializer {
	return &CloneSerializer{
		cloneDir: cloneDir,
		sshUser:  sshUser,
		active:   make(map[string]bool),
	}
}

// RequestClone validates and enqueues one clone. The returned cmd is
// non-nil only when this task starts immediately (nothing was running).
func (c *CloneSerializer) RequestClone(host string, repoName string) (tea.Cmd, error) {
	folderKey := folderKeyForRepo(repoName)
	if folderKey == "" {
		return nil, errEmptyRepoName
	}
	if c.active[folderKey] {
		return nil, errCloneConflict
	}
	if _, err := exec.LookPath("git"); err != nil {
		return nil, errGitNotInstalled
	}

	task := CloneTask{
		Host:     host,
		RepoName: repoName,
		CloneURL: c.sshUser + "@" + host + ":" + repoName,
	}
	c.queue = append(c.queue, task)
	c.active[folderKey] = true
	logger.Info().Str("host", host).Str("repo", repoName).Msg("clone queued")

	if c.running {
		return nil, nil
	}
	c.running = true
	return cloneRepoCmd(c.queue[0], c.cloneDir), nil
}

// HandleCompletion retires the finished head task and starts the next
// queued one, if any. The queue always advances; whether the clone
// succeeded is the caller's concern.
func (c *CloneSerializer) HandleCompletion(msg cloneResultMsg) tea.Cmd {
	if len(c.queue) == 0 || c.queue[0].RepoName != msg.task.RepoName {
		logger.Warn().Str("repo", msg.task.RepoName).Msg("clone completion did not match queue head")
		return nil
	}
	c.queue = c.queue[1:]
	delete(c.active, msg.folderKey)
	c.running = false

	if len(c.queue) == 0 {
		return nil
	}
	c.running = true
	return cloneRepoCmd(c.queue[0], c.cloneDir)
}

// Active returns the task currently running, if any.
func (c *CloneSerializer) Active() (CloneTask, bool) {
	if !c.running || len(c.queue) == 0 {
		return CloneTask{}, false
	}
	return c.queue[0], true
}

func (c *CloneSerializer) QueuedCount() int {
	return len(c.queue)
}

type cloneResultMsg struct {
	task      CloneTask
	folderKey string
	output    string
	cloneErr  error
	branch    string
	verifyErr error
}

// cloneRepoCmd runs git clone in the configured clone directory and, on
// success, opens the result to confirm it is a usable repository.
func cloneRepoCmd(task CloneTask, cloneDir string) tea.Cmd {
	return func() tea.Msg {
		msg := cloneResultMsg{task: task, folderKey: folderKeyForRepo(task.RepoName)}
		if err := os.MkdirAll(cloneDir, 0o755); err != nil {
			msg.cloneErr = err
			return msg
		}
		cmd := exec.Command("git", "clone", task.CloneURL)
		cmd.Dir = cloneDir
		out, err := cmd.CombinedOutput()
		msg.output = string(out)
		if err != nil {
			msg.cloneErr = commandErrorWithOutput(err, out)
			return msg
		}
		msg.branch, msg.verifyErr = verifyCloneDir(filepath.Join(cloneDir, msg.folderKey))
		return msg
	}
}

var cloneErrorMarkers = []string{"fatal:", "error:"}

// cloneFailureReason pulls a one-line reason out of captured clone
// output: the text after the first fatal/error marker, or the last
// non-empty line when no marker is present.
func cloneFailureReason(output string) string {
	lines := strings.Split(output, "\n")
	for _, line := range lines {
		for _, marker := range cloneErrorMarkers {
			idx := strings.Index(line, marker)
			if idx < 0 {
				continue
			}
			if reason := strings.TrimSpace(line[idx+len(marker):]); reason != "" {
				return reason
			}
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return "clone failed"
}
