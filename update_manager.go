package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	updateRepoModule      = "github.com/mrbonezy/hqx"
	updateRepoGitURL      = "https://github.com/mrbonezy/hqx.git"
	defaultUpdateInterval = 24 * time.Hour
	startupUpdateTimeout  = 3 * time.Second
	resolveUpdateTimeout  = 8 * time.Second
	installUpdateTimeout  = 2 * time.Minute
	updateStateFileName   = "update.json"
)

type parsedVersion struct {
	Major int
	Minor int
	Patch int
}

type updateState struct {
	LastCheckedUnix int64  `json:"last_checked_unix"`
	LastSeenVersion string `json:"last_seen_version,omitempty"`
}

type updateCheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
}

func runUpdateCommand(checkOnly bool, quiet bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), resolveUpdateTimeout)
	defer cancel()

	latest, err := resolveLatestVersion(ctx)
	if err != nil {
		return err
	}
	result := installCheckResult(currentVersion(), latest)

	if checkOnly {
		printUpdateCheckResult(result, quiet)
		return nil
	}
	if !result.UpdateAvailable {
		printUpdateCheckResult(result, quiet)
		return nil
	}

	if !quiet {
		fmt.Printf("Updating hqx to %s...\n", result.LatestVersion)
	}
	installCtx, installCancel := context.WithTimeout(context.Background(), installUpdateTimeout)
	defer installCancel()
	if err := installVersion(installCtx, result.LatestVersion); err != nil {
		return err
	}
	if quiet {
		fmt.Println(result.LatestVersion)
		return nil
	}
	fmt.Printf("Updated hqx to %s\n", result.LatestVersion)
	return nil
}

func printUpdateCheckResult(result updateCheckResult, quiet bool) {
	printUpdateCheckResultTo(os.Stdout, result, quiet)
}

func printUpdateCheckResultTo(w io.Writer, result updateCheckResult, quiet bool) {
	switch {
	case quiet && result.UpdateAvailable:
		fmt.Fprintln(w, result.LatestVersion)
	case quiet:
		fmt.Fprintln(w, "up_to_date")
	case result.UpdateAvailable:
		fmt.Fprintf(w, "Update available: hqx %s -> %s\n", result.CurrentVersion, result.LatestVersion)
	default:
		fmt.Fprintf(w, "hqx is up to date (%s)\n", result.CurrentVersion)
	}
}

// maybeStartInvocationUpdateCheck nudges toward `hqx update` on stderr when a
// newer release exists. It runs in the background and stays silent on any
// failure so command startup is never delayed or broken by the network.
func maybeStartInvocationUpdateCheck(args []string) {
	if !shouldRunInvocationUpdateCheck(args) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupUpdateTimeout)
		defer cancel()

		result, err := checkForUpdatesWithThrottle(ctx, currentVersion(), defaultUpdateInterval)
		if err != nil || !result.UpdateAvailable {
			return
		}
		fmt.Fprintf(os.Stderr, "hqx %s -> %s available. Run: hqx update\n", result.CurrentVersion, result.LatestVersion)
	}()
}

// Subcommands that already report on versions, or that feed shell completion,
// must not get the stderr nudge.
var updateCheckSkippedCommands = map[string]bool{
	"version":          true,
	"update":           true,
	"completion":       true,
	"__complete":       true,
	"__completeNoDesc": true,
}

func shouldRunInvocationUpdateCheck(args []string) bool {
	if len(args) < 2 {
		return false
	}
	name := strings.TrimSpace(args[1])
	if strings.HasPrefix(name, "-") {
		return false
	}
	return !updateCheckSkippedCommands[name]
}

// checkForUpdatesWithThrottle hits the network at most once per interval.
// The throttle timestamp only advances on a successful resolve, so a failed
// lookup is retried on the next invocation while any previously seen release
// still answers from cache.
func checkForUpdatesWithThrottle(ctx context.Context, currentVersion string, interval time.Duration) (updateCheckResult, error) {
	cur := strings.TrimSpace(currentVersion)
	state, _ := readUpdateState()
	cached := strings.TrimSpace(state.LastSeenVersion)

	now := time.Now()
	if !shouldCheckForUpdates(state.LastCheckedUnix, now, interval) {
		return installCheckResult(cur, cached), nil
	}

	latest, err := resolveLatestVersionFn(ctx)
	if err != nil {
		if cached == "" {
			return updateCheckResult{}, err
		}
		return installCheckResult(cur, cached), nil
	}

	_ = writeUpdateState(updateState{LastCheckedUnix: now.Unix(), LastSeenVersion: latest})
	return installCheckResult(cur, latest), nil
}

func installCheckResult(currentVersion string, latestVersion string) updateCheckResult {
	return updateCheckResult{
		CurrentVersion:  currentVersion,
		LatestVersion:   latestVersion,
		UpdateAvailable: isUpdateAvailableForInstall(currentVersion, latestVersion),
	}
}

func shouldCheckForUpdates(lastCheckedUnix int64, now time.Time, interval time.Duration) bool {
	if lastCheckedUnix <= 0 {
		return true
	}
	elapsed := now.Sub(time.Unix(lastCheckedUnix, 0))
	// Negative elapsed means the recorded timestamp is in the future; recheck.
	return elapsed < 0 || elapsed >= interval
}

func resolveLatestVersion(ctx context.Context) (string, error) {
	output, err := runCommand(ctx, "git", []string{"ls-remote", "--tags", "--refs", updateRepoGitURL}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest version: %w", err)
	}
	latest, ok := latestVersionFromLSRemoteOutput(output)
	if !ok {
		return "", errors.New("failed to resolve latest version: no semver tags found")
	}
	return latest, nil
}

func latestVersionFromLSRemoteOutput(output string) (string, bool) {
	best := ""
	var bestParsed parsedVersion
	for _, line := range strings.Split(output, "\n") {
		tag, ok := tagFromLSRemoteLine(line)
		if !ok {
			continue
		}
		parsed, ok := parseReleaseVersion(tag)
		if !ok {
			continue
		}
		if best == "" || compareReleaseVersions(parsed, bestParsed) > 0 {
			best = tag
			bestParsed = parsed
		}
	}
	return best, best != ""
}

func tagFromLSRemoteLine(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	return strings.CutPrefix(fields[1], "refs/tags/")
}

func installVersion(ctx context.Context, targetVersion string) error {
	targetVersion = strings.TrimSpace(targetVersion)
	if !isReleaseVersion(targetVersion) {
		return fmt.Errorf("invalid target version %q", targetVersion)
	}

	installArgs := []string{"install", updateRepoModule + "@" + targetVersion}
	env := []string{"GOPROXY=direct"}
	output, err := runCommand(ctx, "go", installArgs, env)
	if err == nil {
		return nil
	}
	if shouldRetryInstallForSumDB(output + "\n" + err.Error()) {
		// Fresh tags lag the checksum database when GOPROXY=direct.
		retryOut, retryErr := runCommand(ctx, "go", installArgs, append(env, "GONOSUMDB="+updateRepoModule))
		if retryErr == nil {
			return nil
		}
		return fmt.Errorf("failed to install %s (retry with GONOSUMDB also failed): %w\n%s", targetVersion, retryErr, trimmedCommandOutput(retryOut))
	}
	return fmt.Errorf("failed to install %s: %w\n%s", targetVersion, err, trimmedCommandOutput(output))
}

func shouldRetryInstallForSumDB(output string) bool {
	lower := strings.ToLower(strings.TrimSpace(output))
	switch {
	case lower == "":
		return false
	case strings.Contains(lower, "sumdb"):
		return true
	case strings.Contains(lower, "checksum"):
		return true
	default:
		return strings.Contains(lower, "verifying") && strings.Contains(lower, "go.sum")
	}
}

const maxCommandOutputLen = 1600

func trimmedCommandOutput(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > maxCommandOutputLen {
		output = output[:maxCommandOutputLen] + "\n..."
	}
	return output
}

func isUpdateAvailable(currentVersion string, latestVersion string) bool {
	cur, curOK := parseReleaseVersion(currentVersion)
	latest, latestOK := parseReleaseVersion(latestVersion)
	return curOK && latestOK && compareReleaseVersions(latest, cur) > 0
}

// isUpdateAvailableForInstall also treats dev and pseudo-version builds as
// updatable to any tagged release, since `go install` can always move those
// forward to a real tag.
func isUpdateAvailableForInstall(currentVersion string, latestVersion string) bool {
	cur := strings.TrimSpace(currentVersion)
	latest := strings.TrimSpace(latestVersion)
	if cur == "" || latest == "" {
		return false
	}
	latestParsed, latestIsRelease := parseReleaseVersion(latest)
	if !latestIsRelease {
		return false
	}
	curParsed, curIsRelease := parseReleaseVersion(cur)
	if !curIsRelease {
		return true
	}
	return compareReleaseVersions(latestParsed, curParsed) > 0
}

func isReleaseVersion(version string) bool {
	_, ok := parseReleaseVersion(version)
	return ok
}

// parseReleaseVersion accepts plain tagged releases only: vMAJOR.MINOR.PATCH
// with no prerelease or build suffix.
func parseReleaseVersion(version string) (parsedVersion, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(version), "v")
	if !ok {
		return parsedVersion{}, false
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return parsedVersion{}, false
	}
	var numbers [3]int
	for i, part := range parts {
		n, ok := parseVersionNumber(part)
		if !ok {
			return parsedVersion{}, false
		}
		numbers[i] = n
	}
	return parsedVersion{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, true
}

func parseVersionNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func compareReleaseVersions(a parsedVersion, b parsedVersion) int {
	pairs := [3][2]int{
		{a.Major, b.Major},
		{a.Minor, b.Minor},
		{a.Patch, b.Patch},
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			if p[0] > p[1] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func runCommand(ctx context.Context, name string, args []string, extraEnv []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	raw, err := cmd.CombinedOutput()
	output := string(raw)
	if err == nil {
		return output, nil
	}
	if ctx.Err() != nil {
		return output, ctx.Err()
	}
	return output, err
}

func readUpdateState() (updateState, error) {
	path, err := updateStatePath()
	if err != nil {
		return updateState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return updateState{}, err
	}
	var state updateState
	if err := json.Unmarshal(data, &state); err != nil {
		return updateState{}, err
	}
	return state, nil
}

func writeUpdateState(state updateState) error {
	path, err := updateStatePath()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func updateStatePath() (string, error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "", errors.New("HOME not set")
	}
	return filepath.Join(home, ".hqx", updateStateFileName), nil
}
