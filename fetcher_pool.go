package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

type poolPhase int

const (
	poolIdle poolPhase = iota
	poolFilling
	poolDraining
)

func (p poolPhase) String() string {
	switch p {
	case poolFilling:
		return "filling"
	case poolDraining:
		return "draining"
	default:
		return "idle"
	}
}

type fetchSlot struct {
	busy bool
	host string
}

type poolFillMsg struct{}

// deferredFillCmd refills the pool on a later Update turn, after the
// completed worker's slot has fully retired.
func deferredFillCmd() tea.Cmd {
	return func() tea.Msg {
		return poolFillMsg{}
	}
}

// FetcherPool runs at most size concurrent host probes over a fixed array
// of worker slots. Hosts wait in a FIFO queue; a host never has two probes
// in flight at once. Every dispatched probe carries the generation current
// at dispatch so completions that raced a refresh can be discarded.
type FetcherPool struct {
	store   *RepoStore
	sshUser string
	size    int

	slots      []fetchSlot
	queue      []string
	queued     map[string]bool
	inFlight   map[string]bool
	bulk       bool
	generation int
}

func NewFetcherPool(store *RepoStore, size int, sshUser string) *FetcherPool {
	if size < 1 {
		size = defaultPoolSize
	}
	return &FetcherPool{
		store:    store,
		sshUser:  sshUser,
		size:     size,
		slots:    make([]fetchSlot, size),
		queued:   make(map[string]bool),
		inFlight: make(map[string]bool),
	}
}

// RequestFetch handles the interactive expand/fetch action for one host.
// An expanded host collapses; a loaded host re-expands; a loading host
// only re-expands (its probe is already queued or running); anything else
// is marked loading, queued, and dispatched immediately if a slot is idle.
func (p *FetcherPool) RequestFetch(host string) []tea.Cmd {
	state := p.store.Get(host)
	if state.Expanded {
		collapsed := false
		p.store.Merge(map[string]RepoStatePatch{host: {Expanded: &collapsed}})
		return nil
	}
	if state.Status == StatusLoaded && len(state.Repos) > 0 {
		p.store.SetExpanded(host)
		return nil
	}
	if state.Status == StatusLoading {
		p.store.SetExpanded(host)
		return nil
	}

	p.store.Merge(map[string]RepoStatePatch{host: loadingPatch()})
	p.store.SetExpanded(host)
	p.enqueue(host)
	return p.Fill()
}

// RequestFetchAll queues every canonical host that has no data yet and no
// probe underway, then fills the pool.
func (p *FetcherPool) RequestFetchAll(hosts []string) []tea.Cmd {
	for _, host := range hosts {
		if p.store.Get(host).Status != StatusIdle {
			continue
		}
		p.enqueue(host)
	}
	if len(p.queue) == 0 && len(p.inFlight) == 0 {
		return nil
	}
	p.bulk = true
	logger.Info().Int("queued", len(p.queue)).Msg("bulk fetch started")
	return p.Fill()
}

// RefreshAll re-queues every canonical host regardless of current state
// and advances the generation, so completions from probes dispatched
// before the refresh are dropped on arrival. Stale repo lists stay
// visible until their replacement probe lands.
func (p *FetcherPool) RefreshAll(hosts []string) []tea.Cmd {
	p.generation++
	for _, host := range hosts {
		p.enqueue(host)
	}
	if len(p.queue) == 0 && len(p.inFlight) == 0 {
		return nil
	}
	p.bulk = true
	logger.Info().Int("generation", p.generation).Int("queued", len(p.queue)).Msg("refresh started")
	return p.Fill()
}

func (p *FetcherPool) enqueue(host string) {
	if p.queued[host] {
		return
	}
	p.queue = append(p.queue, host)
	p.queued[host] = true
}

// Fill dispatches queue heads onto idle slots. All hosts dispatched in
// this pass are marked loading in a single merge before any probe starts,
// so no caller observing the store can re-queue them mid-pass. A host
// whose previous probe is still in flight goes to the back of the queue;
// the pass walks the queue at most once, so this cannot spin.
func (p *FetcherPool) Fill() []tea.Cmd {
	type dispatch struct {
		host string
		slot int
	}
	dispatches := make([]dispatch, 0, p.size)

	for passes := len(p.queue); passes > 0 && len(p.queue) > 0; passes-- {
		slot := p.idleSlot()
		if slot < 0 {
			break
		}
		host := p.queue[0]
		p.queue = p.queue[1:]
		if p.inFlight[host] {
			p.queue = append(p.queue, host)
			continue
		}
		delete(p.queued, host)
		p.inFlight[host] = true
		p.slots[slot] = fetchSlot{busy: true, host: host}
		dispatches = append(dispatches, dispatch{host: host, slot: slot})
	}

	if len(dispatches) == 0 {
		return nil
	}

	patches := make(map[string]RepoStatePatch, len(dispatches))
	for _, d := range dispatches {
		patches[d.host] = loadingPatch()
	}
	p.store.Merge(patches)

	cmds := make([]tea.Cmd, 0, len(dispatches))
	for _, d := range dispatches {
		logger.Debug().Str("host", d.host).Int("generation", p.generation).Msg("probe dispatched")
		cmds = append(cmds, fetchReposCmd(p.sshUser, d.host, p.generation, d.slot))
	}
	return cmds
}

func (p *FetcherPool) idleSlot() int {
	for i := range p.slots {
		if !p.slots[i].busy {
			return i
		}
	}
	return -1
}

// Retire frees the slot of a completed probe. Reports whether this
// completion drained an active bulk cycle.
func (p *FetcherPool) Retire(slot int, host string) bool {
	if slot >= 0 && slot < len(p.slots) && p.slots[slot].host == host {
		p.slots[slot] = fetchSlot{}
	}
	delete(p.inFlight, host)
	if p.bulk && p.Phase() == poolIdle {
		p.bulk = false
		logger.Info().Msg("bulk fetch drained")
		return true
	}
	return false
}

// Phase is derived, not stored: a non-empty queue means filling, probes
// without queued work mean draining, neither means idle.
func (p *FetcherPool) Phase() poolPhase {
	if len(p.queue) > 0 {
		return poolFilling
	}
	if len(p.inFlight) > 0 {
		return poolDraining
	}
	return poolIdle
}

func (p *FetcherPool) BulkActive() bool {
	return p.bulk
}

func (p *FetcherPool) Generation() int {
	return p.generation
}

func (p *FetcherPool) PendingCount() int {
	return len(p.queue)
}

func (p *FetcherPool) ActiveCount() int {
	return len(p.inFlight)
}
