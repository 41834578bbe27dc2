package main

import (
	"testing"
)

func TestRepoStoreMerge_TracksAggregates(t *testing.T) {
	store := NewRepoStore()

	var statsCalls int
	var lastTotal, lastHosts int
	store.OnStatsChanged(func(totalRepos, hostsWithRepos int) {
		statsCalls++
		lastTotal = totalRepos
		lastHosts = hostsWithRepos
	})

	changed := store.Merge(map[string]RepoStatePatch{
		"build01": loadedPatch([]string{"api", "web"}),
		"db01":    loadedPatch([]string{"schemas"}),
	})
	if !changed {
		t.Fatalf("expected repo lists to report a change")
	}
	if store.TotalRepos() != 3 || store.HostsWithRepos() != 2 {
		t.Fatalf("expected 3 repos across 2 hosts, got %d/%d", store.TotalRepos(), store.HostsWithRepos())
	}
	if statsCalls != 1 || lastTotal != 3 || lastHosts != 2 {
		t.Fatalf("expected one stats callback with 3/2, got calls=%d total=%d hosts=%d", statsCalls, lastTotal, lastHosts)
	}

	// Re-merging the same list shrinks nothing and grows nothing.
	changed = store.Merge(map[string]RepoStatePatch{
		"build01": loadedPatch([]string{"api", "web"}),
	})
	if !changed {
		t.Fatalf("expected repo patch to still count as a repo change")
	}
	if store.TotalRepos() != 3 || store.HostsWithRepos() != 2 {
		t.Fatalf("aggregates drifted: %d/%d", store.TotalRepos(), store.HostsWithRepos())
	}
	if statsCalls != 1 {
		t.Fatalf("expected no extra stats callback on unchanged aggregates, got %d", statsCalls)
	}
}

func TestRepoStoreMerge_StatusOnlyPatchIsNotARepoChange(t *testing.T) {
	store := NewRepoStore()

	if changed := store.Merge(map[string]RepoStatePatch{"build01": loadingPatch()}); changed {
		t.Fatalf("expected status-only patch to not report a repo change")
	}
	if got := store.Get("build01").Status; got != StatusLoading {
		t.Fatalf("expected loading status, got %v", got)
	}
}

func TestRepoStoreMerge_ErrorPatchClearsRepos(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{"build01": loadedPatch([]string{"api"})})

	store.Merge(map[string]RepoStatePatch{"build01": errorPatch("connection refused")})

	state := store.Get("build01")
	if state.Status != StatusError || state.ErrorMessage != "connection refused" {
		t.Fatalf("unexpected state after error patch: %#v", state)
	}
	if len(state.Repos) != 0 {
		t.Fatalf("expected repos cleared on error, got %v", state.Repos)
	}
	if store.TotalRepos() != 0 || store.HostsWithRepos() != 0 {
		t.Fatalf("aggregates not rolled back: %d/%d", store.TotalRepos(), store.HostsWithRepos())
	}
}

func TestRepoStoreMerge_NotifiesPerHostState(t *testing.T) {
	store := NewRepoStore()

	notified := make(map[string]RepoState)
	store.OnStateChanged(func(host string, state RepoState) {
		notified[host] = state
	})

	store.Merge(map[string]RepoStatePatch{
		"build01": loadedPatch([]string{"api"}),
		"db01":    loadingPatch(),
	})

	if len(notified) != 2 {
		t.Fatalf("expected 2 state callbacks, got %d", len(notified))
	}
	if notified["build01"].Status != StatusLoaded || notified["db01"].Status != StatusLoading {
		t.Fatalf("unexpected notified states: %#v", notified)
	}
}

func TestRepoStoreSetExpanded_SingleHostInvariant(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{
		"build01": loadedPatch([]string{"api"}),
		"db01":    loadedPatch([]string{"schemas"}),
	})

	if !store.SetExpanded("build01") {
		t.Fatalf("expected build01 to expand")
	}
	if !store.SetExpanded("db01") {
		t.Fatalf("expected db01 to expand")
	}

	if store.Get("build01").Expanded {
		t.Fatalf("expected build01 to collapse when db01 expanded")
	}
	host, ok := store.ExpandedHost()
	if !ok || host != "db01" {
		t.Fatalf("expected db01 expanded, got %q ok=%v", host, ok)
	}
}

func TestRepoStoreSetExpanded_RefusesEmptyAndErrorHosts(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{
		"empty01": loadedPatch(nil),
		"err01":   errorPatch("unreachable"),
	})

	if store.SetExpanded("empty01") {
		t.Fatalf("expected loaded host without repos to refuse expansion")
	}
	if store.SetExpanded("err01") {
		t.Fatalf("expected errored host to refuse expansion")
	}
	if store.SetExpanded("unknown01") {
		t.Fatalf("expected unknown host to refuse expansion")
	}
	if _, ok := store.ExpandedHost(); ok {
		t.Fatalf("expected no expanded host")
	}
}

func TestRepoStoreSetExpanded_AllowsLoadingHost(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{"build01": loadingPatch()})

	if !store.SetExpanded("build01") {
		t.Fatalf("expected loading host to expand")
	}
}

func TestRepoStoreCollapseAll(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{"build01": loadedPatch([]string{"api"})})
	store.SetExpanded("build01")

	store.CollapseAll()

	if _, ok := store.ExpandedHost(); ok {
		t.Fatalf("expected all hosts collapsed")
	}
}

func TestRepoStoreReset(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{"build01": loadedPatch([]string{"api"})})

	var statsCalls int
	store.OnStatsChanged(func(totalRepos, hostsWithRepos int) {
		statsCalls++
		if totalRepos != 0 || hostsWithRepos != 0 {
			t.Fatalf("expected zeroed stats, got %d/%d", totalRepos, hostsWithRepos)
		}
	})

	store.Reset()

	if store.TotalRepos() != 0 || store.HostsWithRepos() != 0 {
		t.Fatalf("expected aggregates reset, got %d/%d", store.TotalRepos(), store.HostsWithRepos())
	}
	if state := store.Get("build01"); state.Status != StatusIdle || len(state.Repos) != 0 {
		t.Fatalf("expected zero state after reset, got %#v", state)
	}
	if statsCalls != 1 {
		t.Fatalf("expected one stats callback on reset, got %d", statsCalls)
	}
}

func TestRepoStoreSnapshot_IsDeepCopy(t *testing.T) {
	store := NewRepoStore()
	store.Merge(map[string]RepoStatePatch{"build01": loadedPatch([]string{"api", "web"})})

	snap := store.Snapshot()
	snap["build01"].Repos[0] = "mutated"

	if got := store.Get("build01").Repos[0]; got != "api" {
		t.Fatalf("snapshot mutation leaked into store: %q", got)
	}
}

func TestRepoStatusString(t *testing.T) {
	tests := []struct {
		status RepoStatus
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusLoading, "loading"},
		{StatusLoaded, "loaded"},
		{StatusError, "error"},
	}
	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
