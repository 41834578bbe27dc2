package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
)

func stubResolveLatestVersion(t *testing.T, version string, err error) *bool {
	t.Helper()
	called := false
	oldResolve := resolveLatestVersionFn
	resolveLatestVersionFn = func(context.Context) (string, error) {
		called = true
		return version, err
	}
	t.Cleanup(func() {
		resolveLatestVersionFn = oldResolve
	})
	return &called
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stdout: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	os.Stdout = oldStdout
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return out.String(), runErr
}

func TestRunVersionFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubResolveLatestVersion(t, "v9.9.9", nil)

	out, err := captureStdout(t, func() error {
		return run([]string{"hqx", "--version"})
	})
	if err != nil {
		t.Fatalf("run --version: %v", err)
	}

	if got := strings.TrimSpace(out); got != currentVersion() {
		t.Fatalf("expected %q, got %q", currentVersion(), got)
	}
}

func TestRunVersionFlagAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubResolveLatestVersion(t, "v9.9.9", nil)

	out, err := captureStdout(t, func() error {
		return run([]string{"hqx", "-v"})
	})
	if err != nil {
		t.Fatalf("run -v: %v", err)
	}

	if got := strings.TrimSpace(out); got != currentVersion() {
		t.Fatalf("expected %q, got %q", currentVersion(), got)
	}
}

func TestRunVersionSubcommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubResolveLatestVersion(t, "v9.9.9", nil)

	out, err := captureStdout(t, func() error {
		return run([]string{"hqx", "version"})
	})
	if err != nil {
		t.Fatalf("run version: %v", err)
	}

	if got := strings.TrimSpace(out); got != currentVersion() {
		t.Fatalf("expected %q, got %q", currentVersion(), got)
	}
}

func TestRunVersionFlagChecksLatest(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	called := stubResolveLatestVersion(t, "v9.9.9", nil)

	if _, err := captureStdout(t, func() error {
		return run([]string{"hqx", "--version"})
	}); err != nil {
		t.Fatalf("run --version: %v", err)
	}
	if !*called {
		t.Fatalf("expected --version to check latest version")
	}
}

func TestRunVersionResolverFailureStillPrintsVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubResolveLatestVersion(t, "", os.ErrDeadlineExceeded)

	out, err := captureStdout(t, func() error {
		return run([]string{"hqx", "version"})
	})
	if err != nil {
		t.Fatalf("expected resolver failure to be non-fatal, got %v", err)
	}
	if got := strings.TrimSpace(out); got != currentVersion() {
		t.Fatalf("expected %q, got %q", currentVersion(), got)
	}
}

func TestRunTestModeBypassesUI(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HQX_TEST_MODE", "1")

	out, err := captureStdout(t, func() error {
		return run([]string{"hqx"})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "hqx test mode: interactive UI bypassed") {
		t.Fatalf("expected bypass message, got %q", out)
	}
}

func TestRunWithoutConfigReportsSetupHint(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HQX_TEST_MODE", "")
	t.Setenv("HQX_DISABLE_TMUX", "1")

	err := run([]string{"hqx"})
	if err == nil {
		t.Fatalf("expected error without config")
	}
	if !strings.Contains(err.Error(), "hqx not configured. run: hqx config") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPromptAndMaybeInstallVersionUpdate_Declines(t *testing.T) {
	installCalled := false
	oldInstall := installVersionFn
	installVersionFn = func(context.Context, string) error {
		installCalled = true
		return nil
	}
	t.Cleanup(func() {
		installVersionFn = oldInstall
	})

	var out bytes.Buffer
	err := promptAndMaybeInstallVersionUpdate(strings.NewReader("n\n"), &out, updateCheckResult{
		CurrentVersion:  "v1.0.0",
		LatestVersion:   "v1.1.0",
		UpdateAvailable: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if installCalled {
		t.Fatalf("expected install to be skipped")
	}
	if !strings.Contains(out.String(), "Skipped update.") {
		t.Fatalf("expected skip message, got %q", out.String())
	}
}

func TestPromptAndMaybeInstallVersionUpdate_Accepts(t *testing.T) {
	var installedVersion string
	oldInstall := installVersionFn
	installVersionFn = func(_ context.Context, v string) error {
		installedVersion = v
		return nil
	}
	t.Cleanup(func() {
		installVersionFn = oldInstall
	})

	var out bytes.Buffer
	err := promptAndMaybeInstallVersionUpdate(strings.NewReader("y\n"), &out, updateCheckResult{
		CurrentVersion:  "v1.0.0",
		LatestVersion:   "v1.1.0",
		UpdateAvailable: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if installedVersion != "v1.1.0" {
		t.Fatalf("expected install of v1.1.0, got %q", installedVersion)
	}
	if !strings.Contains(out.String(), "Updated hqx to v1.1.0") {
		t.Fatalf("expected success message, got %q", out.String())
	}
}

func TestPromptAndMaybeInstallVersionUpdate_NoUpdateAvailable(t *testing.T) {
	var out bytes.Buffer
	err := promptAndMaybeInstallVersionUpdate(strings.NewReader(""), &out, updateCheckResult{
		CurrentVersion: "v1.0.0",
		LatestVersion:  "v1.0.0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no prompt, got %q", out.String())
	}
}

func TestIsInteractiveTerminal(t *testing.T) {
	if isInteractiveTerminal(nil) {
		t.Fatalf("expected nil file to be non-interactive")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	if isInteractiveTerminal(r) {
		t.Fatalf("expected pipe to be non-interactive")
	}
}
