package main

import (
	"testing"
)

func TestFetcherPoolFill_BoundsConcurrency(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	cmds := pool.RequestFetchAll([]string{"h1", "h2", "h3", "h4"})

	if len(cmds) != 2 {
		t.Fatalf("expected 2 dispatches for pool size 2, got %d", len(cmds))
	}
	if pool.ActiveCount() != 2 || pool.PendingCount() != 2 {
		t.Fatalf("expected 2 active and 2 pending, got %d/%d", pool.ActiveCount(), pool.PendingCount())
	}
	if pool.Phase() != poolFilling {
		t.Fatalf("expected filling phase, got %v", pool.Phase())
	}
}

func TestFetcherPoolFill_MarksDispatchedHostsLoadingInOneMerge(t *testing.T) {
	store := NewRepoStore()

	var stateCalls int
	store.OnStateChanged(func(host string, state RepoState) {
		if state.Status == StatusLoading {
			stateCalls++
		}
	})

	pool := NewFetcherPool(store, 4, "git")
	pool.RequestFetchAll([]string{"h1", "h2"})

	if stateCalls != 2 {
		t.Fatalf("expected 2 loading notifications, got %d", stateCalls)
	}
	for _, host := range []string{"h1", "h2"} {
		if got := store.Get(host).Status; got != StatusLoading {
			t.Fatalf("expected %s loading, got %v", host, got)
		}
	}
}

func TestFetcherPoolRequestFetch_TogglesExpansion(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	store.Merge(map[string]RepoStatePatch{"h1": loadedPatch([]string{"api"})})

	if cmds := pool.RequestFetch("h1"); cmds != nil {
		t.Fatalf("expected loaded host to expand without probes, got %d cmds", len(cmds))
	}
	if !store.Get("h1").Expanded {
		t.Fatalf("expected h1 expanded")
	}

	if cmds := pool.RequestFetch("h1"); cmds != nil {
		t.Fatalf("expected expanded host to collapse without probes, got %d cmds", len(cmds))
	}
	if store.Get("h1").Expanded {
		t.Fatalf("expected h1 collapsed")
	}
}

func TestFetcherPoolRequestFetch_IdleHostDispatchesProbe(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	cmds := pool.RequestFetch("h1")

	if len(cmds) != 1 {
		t.Fatalf("expected one probe command, got %d", len(cmds))
	}
	state := store.Get("h1")
	if state.Status != StatusLoading || !state.Expanded {
		t.Fatalf("expected loading+expanded, got %#v", state)
	}
}

func TestFetcherPoolRequestFetch_LoadingHostDoesNotDoubleDispatch(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	pool.RequestFetch("h1")
	store.Merge(map[string]RepoStatePatch{"h1": {Expanded: boolPtr(false)}})

	if cmds := pool.RequestFetch("h1"); cmds != nil {
		t.Fatalf("expected loading host to only re-expand, got %d cmds", len(cmds))
	}
	if pool.ActiveCount() != 1 {
		t.Fatalf("expected single probe in flight, got %d", pool.ActiveCount())
	}
}

func TestFetcherPoolRequestFetchAll_SkipsNonIdleHosts(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 8, "git")

	store.Merge(map[string]RepoStatePatch{
		"loaded01": loadedPatch([]string{"api"}),
		"err01":    errorPatch("unreachable"),
	})

	cmds := pool.RequestFetchAll([]string{"loaded01", "err01", "fresh01"})

	if len(cmds) != 1 {
		t.Fatalf("expected only the idle host to dispatch, got %d cmds", len(cmds))
	}
	if !pool.BulkActive() {
		t.Fatalf("expected bulk cycle active")
	}
	if got := store.Get("fresh01").Status; got != StatusLoading {
		t.Fatalf("expected fresh01 loading, got %v", got)
	}
}

func TestFetcherPoolRequestFetchAll_NothingToDo(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 8, "git")
	store.Merge(map[string]RepoStatePatch{"h1": loadedPatch([]string{"api"})})

	if cmds := pool.RequestFetchAll([]string{"h1"}); cmds != nil {
		t.Fatalf("expected no dispatches, got %d", len(cmds))
	}
	if pool.BulkActive() {
		t.Fatalf("expected no bulk cycle when nothing queued")
	}
}

func TestFetcherPoolRefreshAll_AdvancesGeneration(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 8, "git")
	store.Merge(map[string]RepoStatePatch{"h1": loadedPatch([]string{"api"})})

	before := pool.Generation()
	cmds := pool.RefreshAll([]string{"h1", "h2"})

	if pool.Generation() != before+1 {
		t.Fatalf("expected generation bump, got %d -> %d", before, pool.Generation())
	}
	if len(cmds) != 2 {
		t.Fatalf("expected both hosts re-probed, got %d cmds", len(cmds))
	}
	if !pool.BulkActive() {
		t.Fatalf("expected bulk cycle active on refresh")
	}
}

func TestFetcherPoolFill_RequeuesInFlightHostOnce(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	pool.RequestFetch("h1")
	// Refresh re-queues h1 while its probe is still in flight.
	pool.RefreshAll([]string{"h1"})

	if pool.ActiveCount() != 1 {
		t.Fatalf("expected no duplicate probe for in-flight host, got %d active", pool.ActiveCount())
	}
	if pool.PendingCount() != 1 {
		t.Fatalf("expected h1 waiting for its slot, got %d pending", pool.PendingCount())
	}

	// Retiring the stale probe frees the slot; the next fill dispatches the
	// queued replacement.
	pool.Retire(0, "h1")
	cmds := pool.Fill()
	if len(cmds) != 1 {
		t.Fatalf("expected queued refresh probe to dispatch, got %d", len(cmds))
	}
}

func TestFetcherPoolRetire_ReportsBulkDrain(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	pool.RequestFetchAll([]string{"h1", "h2"})

	if drained := pool.Retire(0, "h1"); drained {
		t.Fatalf("expected no drain while h2 in flight")
	}
	if drained := pool.Retire(1, "h2"); !drained {
		t.Fatalf("expected drain once last probe retired")
	}
	if pool.BulkActive() {
		t.Fatalf("expected bulk flag cleared after drain")
	}
	if pool.Phase() != poolIdle {
		t.Fatalf("expected idle phase, got %v", pool.Phase())
	}
}

func TestFetcherPoolRetire_IgnoresMismatchedSlot(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 2, "git")

	pool.RequestFetch("h1")
	pool.Retire(1, "h1")

	// Wrong slot still clears in-flight tracking so the host can re-probe.
	if pool.ActiveCount() != 0 {
		t.Fatalf("expected in-flight cleared, got %d", pool.ActiveCount())
	}
}

func TestFetcherPoolPhase_Derivation(t *testing.T) {
	store := NewRepoStore()
	pool := NewFetcherPool(store, 1, "git")

	if pool.Phase() != poolIdle {
		t.Fatalf("expected idle on fresh pool, got %v", pool.Phase())
	}

	pool.RequestFetchAll([]string{"h1", "h2"})
	if pool.Phase() != poolFilling {
		t.Fatalf("expected filling with queued work, got %v", pool.Phase())
	}

	pool.Retire(0, "h1")
	pool.Fill()
	if pool.Phase() != poolDraining {
		t.Fatalf("expected draining with empty queue and one probe, got %v", pool.Phase())
	}
}

func TestNewFetcherPool_ClampsSize(t *testing.T) {
	pool := NewFetcherPool(NewRepoStore(), 0, "git")
	cmds := pool.RequestFetchAll([]string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8", "h9"})
	if len(cmds) != defaultPoolSize {
		t.Fatalf("expected %d dispatches from default pool size, got %d", defaultPoolSize, len(cmds))
	}
}

func TestPoolPhaseString(t *testing.T) {
	if poolIdle.String() != "idle" || poolFilling.String() != "filling" || poolDraining.String() != "draining" {
		t.Fatalf("unexpected phase strings: %v %v %v", poolIdle, poolFilling, poolDraining)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
