package main

import (
	"errors"
	"os"
	"os/exec"
	"testing"
)

func requireGitOnPath(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestFolderKeyForRepo(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"repoA", "repoA"},
		{"repoA.git", "repoA"},
		{"team/project", "project"},
		{"team/project.git", "project"},
		{"a/b/c.git", "c"},
		{"  padded  ", "padded"},
		{"", ""},
		{".git", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := folderKeyForRepo(tc.input); got != tc.want {
				t.Fatalf("folderKeyForRepo(%q): expected %q, got %q", tc.input, tc.want, got)
			}
		})
	}
}

func TestCloneSerializerRequestClone_StartsFirstTaskImmediately(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	cmd, err := serializer.RequestClone("build01", "repoA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatalf("expected first clone to start immediately")
	}

	task, ok := serializer.Active()
	if !ok || task.RepoName != "repoA" {
		t.Fatalf("expected repoA active, got %#v ok=%v", task, ok)
	}
	if task.CloneURL != "git@build01:repoA" {
		t.Fatalf("unexpected clone URL %q", task.CloneURL)
	}
}

func TestCloneSerializerRequestClone_QueuesBehindRunningTask(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	serializer.RequestClone("build01", "repoA")
	cmd, err := serializer.RequestClone("db01", "repoB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil {
		t.Fatalf("expected queued task to not start while another runs")
	}
	if serializer.QueuedCount() != 2 {
		t.Fatalf("expected 2 queued tasks, got %d", serializer.QueuedCount())
	}
}

func TestCloneSerializerRequestClone_RejectsFolderKeyConflict(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	serializer.RequestClone("build01", "team/project.git")

	// Different repo name, same on-disk folder.
	if _, err := serializer.RequestClone("db01", "project"); !errors.Is(err, errCloneConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCloneSerializerRequestClone_RejectsEmptyName(t *testing.T) {
	serializer := NewCloneSerializer(t.TempDir(), "git")
	if _, err := serializer.RequestClone("build01", "   "); !errors.Is(err, errEmptyRepoName) {
		t.Fatalf("expected empty-name error, got %v", err)
	}
}

func TestCloneSerializerHandleCompletion_AdvancesQueue(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	serializer.RequestClone("build01", "repoA")
	serializer.RequestClone("db01", "repoB")

	cmd := serializer.HandleCompletion(cloneResultMsg{
		task:      CloneTask{Host: "build01", RepoName: "repoA"},
		folderKey: "repoA",
	})
	if cmd == nil {
		t.Fatalf("expected next queued clone to start")
	}

	task, ok := serializer.Active()
	if !ok || task.RepoName != "repoB" {
		t.Fatalf("expected repoB active, got %#v ok=%v", task, ok)
	}

	// repoA's key is free again.
	if _, err := serializer.RequestClone("build01", "repoA"); err != nil {
		t.Fatalf("expected repoA to be requestable after completion, got %v", err)
	}
}

func TestCloneSerializerHandleCompletion_AdvancesOnFailureToo(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	serializer.RequestClone("build01", "repoA")
	cmd := serializer.HandleCompletion(cloneResultMsg{
		task:      CloneTask{Host: "build01", RepoName: "repoA"},
		folderKey: "repoA",
		cloneErr:  errors.New("exit status 128"),
	})
	if cmd != nil {
		t.Fatalf("expected empty queue after sole task failed")
	}
	if _, ok := serializer.Active(); ok {
		t.Fatalf("expected no active task")
	}
}

func TestCloneSerializerHandleCompletion_IgnoresMismatchedHead(t *testing.T) {
	requireGitOnPath(t)
	serializer := NewCloneSerializer(t.TempDir(), "git")

	serializer.RequestClone("build01", "repoA")
	cmd := serializer.HandleCompletion(cloneResultMsg{
		task:      CloneTask{Host: "db01", RepoName: "other"},
		folderKey: "other",
	})
	if cmd != nil {
		t.Fatalf("expected mismatched completion to be dropped")
	}
	if _, ok := serializer.Active(); !ok {
		t.Fatalf("expected repoA to stay active")
	}
}

func TestCloneFailureReason(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "fatal marker",
			output: "Cloning into 'repoA'...\nfatal: repository 'repoA' not found\n",
			want:   "repository 'repoA' not found",
		},
		{
			name:   "error marker",
			output: "error: RPC failed; curl 56\n",
			want:   "RPC failed; curl 56",
		},
		{
			name:   "no marker uses last line",
			output: "Cloning into 'repoA'...\nConnection closed by remote host\n",
			want:   "Connection closed by remote host",
		},
		{
			name:   "empty output",
			output: "",
			want:   "clone failed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cloneFailureReason(tc.output); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestVerifyCloneDir_NotARepository(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := verifyCloneDir(dir); err == nil {
		t.Fatalf("expected error for a plain directory")
	}
}
