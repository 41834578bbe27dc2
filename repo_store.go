package main

type RepoStatus int

const (
	StatusIdle RepoStatus = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s RepoStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

type RepoState struct {
	Status       RepoStatus
	Repos        []string
	ErrorMessage string
	Expanded     bool
}

// RepoStatePatch is a partial RepoState; nil fields are left unchanged
// by a merge.
type RepoStatePatch struct {
	Status       *RepoStatus
	Repos        *[]string
	ErrorMessage *string
	Expanded     *bool
}

func loadingPatch() RepoStatePatch {
	status := StatusLoading
	return RepoStatePatch{Status: &status}
}

func loadedPatch(repos []string) RepoStatePatch {
	status := StatusLoaded
	message := ""
	return RepoStatePatch{Status: &status, Repos: &repos, ErrorMessage: &message}
}

func errorPatch(message string) RepoStatePatch {
	status := StatusError
	repos := []string{}
	return RepoStatePatch{Status: &status, Repos: &repos, ErrorMessage: &message}
}

// RepoStore holds per-host discovery state keyed by canonical host name.
// It is the single source of truth for the UI; all mutation goes through
// Merge/SetExpanded/CollapseAll/Reset, and observers subscribe to change
// callbacks instead of reaching into the map. Aggregates are maintained
// incrementally so stats never require a full rescan.
type RepoStore struct {
	states         map[string]RepoState
	totalRepos     int
	hostsWithRepos int

	onState func(host string, state RepoState)
	onStats func(totalRepos, hostsWithRepos int)
}

func NewRepoStore() *RepoStore {
	return &RepoStore{states: make(map[string]RepoState)}
}

func (s *RepoStore) OnStateChanged(fn func(host string, state RepoState)) {
	s.onState = fn
}

func (s *RepoStore) OnStatsChanged(fn func(totalRepos, hostsWithRepos int)) {
	s.onStats = fn
}

// Get returns the state for host; absent hosts read as the zero state
// (Idle, no repos). Callers must treat the returned slice as read-only.
func (s *RepoStore) Get(host string) RepoState {
	return s.states[host]
}

// Merge applies partial states for any number of hosts in one step.
// Each host's state is read whole, patched, and written back whole.
// Reports whether any host's repo list changed, which is what gates
// cache-save scheduling; expand/collapse flips alone do not.
func (s *RepoStore) Merge(patches map[string]RepoStatePatch) bool {
	reposBefore, hostsBefore := s.totalRepos, s.hostsWithRepos
	reposChanged := false

	for host, patch := range patches {
		state := s.states[host]
		if patch.Status != nil {
			state.Status = *patch.Status
		}
		if patch.Repos != nil {
			next := *patch.Repos
			s.totalRepos += len(next) - len(state.Repos)
			if len(state.Repos) == 0 && len(next) > 0 {
				s.hostsWithRepos++
			} else if len(state.Repos) > 0 && len(next) == 0 {
				s.hostsWithRepos--
			}
			state.Repos = append([]string(nil), next...)
			reposChanged = true
		}
		if patch.ErrorMessage != nil {
			state.ErrorMessage = *patch.ErrorMessage
		}
		if patch.Expanded != nil {
			state.Expanded = *patch.Expanded
		}
		s.states[host] = state
		s.notifyState(host, state)
	}

	if s.totalRepos != reposBefore || s.hostsWithRepos != hostsBefore {
		s.notifyStats()
	}
	return reposChanged
}

// SetExpanded collapses every other host and expands the given one,
// provided its state can show a sublist (loading, or loaded with repos).
// Reports whether the host ended up expanded.
func (s *RepoStore) SetExpanded(host string) bool {
	for name, state := range s.states {
		if name == host || !state.Expanded {
			continue
		}
		state.Expanded = false
		s.states[name] = state
		s.notifyState(name, state)
	}

	target := s.states[host]
	expandable := target.Status == StatusLoading ||
		(target.Status == StatusLoaded && len(target.Repos) > 0)
	if !expandable {
		return false
	}
	if !target.Expanded {
		target.Expanded = true
		s.states[host] = target
		s.notifyState(host, target)
	}
	return true
}

func (s *RepoStore) CollapseAll() {
	for name, state := range s.states {
		if !state.Expanded {
			continue
		}
		state.Expanded = false
		s.states[name] = state
		s.notifyState(name, state)
	}
}

func (s *RepoStore) ExpandedHost() (string, bool) {
	for name, state := range s.states {
		if state.Expanded {
			return name, true
		}
	}
	return "", false
}

// Reset drops every entry. Used by the cache-clearing refresh; normal
// operation never deletes states.
func (s *RepoStore) Reset() {
	changed := s.totalRepos != 0 || s.hostsWithRepos != 0
	s.states = make(map[string]RepoState)
	s.totalRepos = 0
	s.hostsWithRepos = 0
	if changed {
		s.notifyStats()
	}
}

func (s *RepoStore) TotalRepos() int {
	return s.totalRepos
}

func (s *RepoStore) HostsWithRepos() int {
	return s.hostsWithRepos
}

// Snapshot copies the full state map for whole-file persistence.
func (s *RepoStore) Snapshot() map[string]RepoState {
	out := make(map[string]RepoState, len(s.states))
	for host, state := range s.states {
		state.Repos = append([]string(nil), state.Repos...)
		out[host] = state
	}
	return out
}

func (s *RepoStore) notifyState(host string, state RepoState) {
	if s.onState != nil {
		s.onState(host, state)
	}
}

func (s *RepoStore) notifyStats() {
	if s.onStats != nil {
		s.onStats(s.totalRepos, s.hostsWithRepos)
	}
}
