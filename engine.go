package main

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type engineNotice struct {
	text    string
	isError bool
}

// Engine coordinates the discovery components on the program's single
// event loop: the store holds per-host state, the pool probes hosts, the
// serializer clones one repo at a time, the checker batches existence
// probes, the cache persists discoveries, and the scheduler debounces
// saves and search rebuilds. Every method runs on the loop thread and
// returns the commands for whatever external work it started.
type Engine struct {
	store     *RepoStore
	pool      *FetcherPool
	cloner    *CloneSerializer
	checker   *ExistenceChecker
	cache     *DiskCache
	search    *SearchIndex
	scheduler *taskScheduler

	hosts       []Host
	canonical   []Host
	searchQuery string
}

func newEngine(cfg Config) *Engine {
	store := NewRepoStore()
	cache, err := NewDiskCache()
	if err != nil {
		logger.Warn().Err(err).Msg("no user cache dir, repo cache disabled")
		cache = nil
	}

	e := &Engine{
		store:     store,
		pool:      NewFetcherPool(store, cfg.PoolSize, cfg.SSHUser),
		cloner:    NewCloneSerializer(cfg.CloneDir, cfg.SSHUser),
		checker:   NewExistenceChecker(cfg.CloneDir),
		cache:     cache,
		search:    NewSearchIndex(),
		scheduler: newTaskScheduler(),
	}

	store.OnStateChanged(func(host string, state RepoState) {
		logger.Debug().
			Str("host", host).
			Str("status", state.Status.String()).
			Int("repos", len(state.Repos)).
			Bool("expanded", state.Expanded).
			Msg("host state changed")
	})
	store.OnStatsChanged(func(totalRepos, hostsWithRepos int) {
		logger.Debug().Int("repos", totalRepos).Int("hosts", hostsWithRepos).Msg("stats changed")
	})
	return e
}

func (e *Engine) Store() *RepoStore {
	return e.store
}

// SetHosts replaces the registry list and recomputes canonical hosts.
// Called at startup and again on every hosts-file change.
func (e *Engine) SetHosts(hosts []Host) {
	e.hosts = hosts
	e.canonical = canonicalHosts(hosts)
	logger.Info().Int("hosts", len(hosts)).Int("canonical", len(e.canonical)).Msg("host list updated")
}

func (e *Engine) CanonicalHosts() []Host {
	return e.canonical
}

func (e *Engine) canonicalNames() []string {
	names := make([]string, 0, len(e.canonical))
	for _, host := range e.canonical {
		names = append(names, host.Name)
	}
	return names
}

// LoadCache seeds the store from the persisted mapping (loaded, not
// expanded) and kicks an existence sweep over everything it restored.
// Decode failures are logged and leave the engine with empty state.
func (e *Engine) LoadCache() []tea.Cmd {
	if e.cache == nil {
		return nil
	}
	repos, err := e.cache.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("repo cache unreadable, starting empty")
		return nil
	}
	if len(repos) == 0 {
		return nil
	}

	patches := make(map[string]RepoStatePatch, len(repos))
	keys := make([]string, 0, 64)
	for host, list := range repos {
		if len(list) == 0 {
			continue
		}
		patch := loadedPatch(list)
		collapsed := false
		patch.Expanded = &collapsed
		patches[host] = patch
		for _, repo := range list {
			keys = append(keys, folderKeyForRepo(repo))
		}
	}
	e.store.Merge(patches)
	logger.Info().Int("hosts", len(patches)).Msg("repo cache loaded")

	if cmd := e.checker.Check(keys); cmd != nil {
		return []tea.Cmd{cmd}
	}
	return nil
}

func (e *Engine) RequestFetch(host string) []tea.Cmd {
	return e.pool.RequestFetch(host)
}

func (e *Engine) RequestFetchAll() []tea.Cmd {
	return e.pool.RequestFetchAll(e.canonicalNames())
}

func (e *Engine) RefreshAll() []tea.Cmd {
	return e.pool.RefreshAll(e.canonicalNames())
}

// ClearAndRefetch wipes the store, the existence map, and the cache file,
// then starts a fresh bulk fetch. Reports false while a bulk fetch is
// already running, in which case nothing happens.
func (e *Engine) ClearAndRefetch() ([]tea.Cmd, bool) {
	if e.pool.BulkActive() {
		return nil, false
	}
	e.store.Reset()
	e.checker.Reset()
	e.scheduler.Cancel(taskSaveCache)
	logger.Info().Msg("repo cache cleared, refetching")

	cmds := e.pool.RefreshAll(e.canonicalNames())
	if e.cache != nil {
		cmds = append(cmds, saveCacheCmd(e.cache, e.store.Snapshot()))
	}
	if strings.TrimSpace(e.searchQuery) != "" {
		cmds = append(cmds, e.scheduler.Schedule(taskSearch, searchDebounce))
	}
	return cmds, true
}

func (e *Engine) CollapseAll() {
	e.store.CollapseAll()
}

func (e *Engine) RequestClone(host string, repoName string) (tea.Cmd, engineNotice) {
	cmd, err := e.cloner.RequestClone(host, repoName)
	switch {
	case errors.Is(err, errCloneConflict):
		return nil, engineNotice{text: "Clone already pending for " + folderKeyForRepo(repoName)}
	case err != nil:
		return nil, engineNotice{text: err.Error(), isError: true}
	}
	if cmd != nil {
		return cmd, engineNotice{text: "Cloning " + repoName + "..."}
	}
	return nil, engineNotice{text: "Queued clone of " + repoName}
}

// SetSearchQuery records the live query. A blank query empties results
// immediately; anything else rebuilds after the debounce window.
func (e *Engine) SetSearchQuery(query string) tea.Cmd {
	e.searchQuery = query
	if strings.TrimSpace(query) == "" {
		e.search.Clear()
		e.scheduler.Cancel(taskSearch)
		return nil
	}
	return e.scheduler.Schedule(taskSearch, searchDebounce)
}

func (e *Engine) SearchResults() []SearchResult {
	return e.search.Results()
}

func (e *Engine) RepoExists(folderKey string) (bool, bool) {
	return e.checker.Exists(folderKey)
}

func (e *Engine) CloneActive() (CloneTask, bool) {
	return e.cloner.Active()
}

// CloneQueued counts the tasks waiting behind the active clone.
func (e *Engine) CloneQueued() int {
	queued := e.cloner.QueuedCount()
	if _, active := e.cloner.Active(); active {
		queued--
	}
	return queued
}

func (e *Engine) FetchBusy() bool {
	return e.pool.Phase() != poolIdle
}

// HandleFetchResult retires the probe's slot, merges its outcome unless a
// refresh superseded it, queues existence checks for anything discovered,
// schedules the debounced cache save, and defers the next pool fill by
// one tick.
func (e *Engine) HandleFetchResult(msg fetchResultMsg) []tea.Cmd {
	e.pool.Retire(msg.slot, msg.host)
	var cmds []tea.Cmd

	if msg.generation != e.pool.Generation() {
		logger.Info().
			Str("host", msg.host).
			Int("generation", msg.generation).
			Int("current", e.pool.Generation()).
			Msg("stale probe completion discarded")
	} else {
		cmds = append(cmds, e.mergeFetchOutcome(msg)...)
	}

	if e.pool.PendingCount() > 0 {
		cmds = append(cmds, deferredFillCmd())
	}
	return cmds
}

func (e *Engine) mergeFetchOutcome(msg fetchResultMsg) []tea.Cmd {
	var cmds []tea.Cmd
	var reposChanged bool

	if len(msg.repos) == 0 {
		if msg.probeErr != nil {
			logger.Warn().Err(msg.probeErr).Str("host", msg.host).Msg("probe failed")
		} else {
			logger.Info().Str("host", msg.host).Msg("probe returned no repos")
		}
		reposChanged = e.store.Merge(map[string]RepoStatePatch{msg.host: errorPatch(noReposMessage)})
	} else {
		logger.Info().Str("host", msg.host).Int("repos", len(msg.repos)).Msg("probe completed")
		reposChanged = e.store.Merge(map[string]RepoStatePatch{msg.host: loadedPatch(msg.repos)})
		keys := make([]string, 0, len(msg.repos))
		for _, repo := range msg.repos {
			keys = append(keys, folderKeyForRepo(repo))
		}
		if cmd := e.checker.Check(keys); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if reposChanged {
		cmds = append(cmds, e.scheduler.Schedule(taskSaveCache, saveCacheDebounce))
		if strings.TrimSpace(e.searchQuery) != "" {
			cmds = append(cmds, e.scheduler.Schedule(taskSearch, searchDebounce))
		}
	}
	return cmds
}

// HandleCloneResult advances the clone queue unconditionally, then turns
// the outcome into a notice. Success forces an existence recheck for the
// new folder; a verification failure downgrades the notice but deletes
// nothing.
func (e *Engine) HandleCloneResult(msg cloneResultMsg) ([]tea.Cmd, engineNotice) {
	var cmds []tea.Cmd
	if next := e.cloner.HandleCompletion(msg); next != nil {
		cmds = append(cmds, next)
	}

	if msg.cloneErr != nil {
		reason := cloneFailureReason(msg.output)
		if strings.TrimSpace(msg.output) == "" {
			reason = msg.cloneErr.Error()
		}
		logger.Warn().Err(msg.cloneErr).Str("repo", msg.task.RepoName).Msg("clone failed")
		return cmds, engineNotice{text: "Clone failed: " + reason, isError: true}
	}

	if cmd := e.checker.ForceRecheck(msg.folderKey); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if msg.verifyErr != nil {
		logger.Warn().Err(msg.verifyErr).Str("repo", msg.task.RepoName).Msg("clone verification failed")
		return cmds, engineNotice{text: "Cloned " + msg.folderKey + ", but it does not open as a git repository", isError: true}
	}

	logger.Info().Str("repo", msg.task.RepoName).Str("branch", msg.branch).Msg("clone succeeded")
	notice := "Cloned " + msg.folderKey
	if msg.branch != "" {
		notice += " (" + msg.branch + ")"
	}
	return cmds, engineNotice{text: notice}
}

func (e *Engine) HandleExistenceKick() tea.Cmd {
	return e.checker.Process()
}

func (e *Engine) HandleExistenceResult(msg existenceResultMsg) tea.Cmd {
	return e.checker.HandleResult(msg)
}

func (e *Engine) HandleFill() []tea.Cmd {
	return e.pool.Fill()
}

// HandleDelayedTask runs a debounced task if its firing is still current.
func (e *Engine) HandleDelayedTask(msg delayedTaskMsg) []tea.Cmd {
	if !e.scheduler.Fire(msg) {
		return nil
	}
	switch msg.id {
	case taskSaveCache:
		if e.cache == nil {
			return nil
		}
		return []tea.Cmd{saveCacheCmd(e.cache, e.store.Snapshot())}
	case taskSearch:
		e.search.Rebuild(e.searchQuery, e.canonicalNames(), e.store)
	}
	return nil
}

func (e *Engine) HandleCacheSaved(msg cacheSavedMsg) {
	if msg.err != nil {
		logger.Warn().Err(msg.err).Msg("repo cache save failed")
		return
	}
	logger.Debug().Int("hosts", msg.hosts).Msg("repo cache saved")
}
