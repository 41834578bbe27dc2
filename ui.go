package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	uiview "github.com/mrbonezy/hqx/ui"
)

type model struct {
	engine    *Engine
	watcher   *hostsWatcher
	hostsFile string
	cloneDir  string

	cursor      int
	width       int
	height      int
	mode        uiMode
	searchInput textinput.Model
	searchIndex int
	searchQuery string
	spinner     spinner.Model

	confirmForm *huh.Form
	confirmKind confirmKind
	confirmYes  *bool

	notice            string
	noticeIsError     bool
	updateHint        string
	updateHintIsError bool
	hostsErr          string
	pendingHost       string
}

// PendingHost reports the host selected for a same-terminal SSH handoff.
// Empty until the user connects outside tmux.
func (m model) PendingHost() string {
	return m.pendingHost
}

func newModel(cfg Config) model {
	m := model{
		engine:    newEngine(cfg),
		hostsFile: cfg.HostsFile,
		cloneDir:  cfg.CloneDir,
	}
	m.searchInput = newSearchInput()
	m.spinner = newSpinner()
	m.mode = modeList

	hosts, err := loadHostsFile(cfg.HostsFile)
	if err != nil {
		m.hostsErr = err.Error()
		logger.Error().Err(err).Str("path", cfg.HostsFile).Msg("hosts file unreadable")
	} else {
		m.engine.SetHosts(hosts)
	}

	watcher, werr := newHostsWatcher(cfg.HostsFile)
	if werr != nil {
		logger.Warn().Err(werr).Msg("hosts file watch unavailable")
	} else {
		m.watcher = watcher
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, checkInteractiveUpdateHintCmd()}
	cmds = append(cmds, m.engine.LoadCache()...)
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.waitCmd())
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchResultMsg:
		cmds := m.engine.HandleFetchResult(msg)
		m.clampCursor()
		return m, tea.Batch(cmds...)
	case cloneResultMsg:
		cmds, notice := m.engine.HandleCloneResult(msg)
		m.notice = notice.text
		m.noticeIsError = notice.isError
		return m, tea.Batch(cmds...)
	case existenceKickMsg:
		return m, m.engine.HandleExistenceKick()
	case existenceResultMsg:
		return m, m.engine.HandleExistenceResult(msg)
	case poolFillMsg:
		return m, tea.Batch(m.engine.HandleFill()...)
	case delayedTaskMsg:
		cmds := m.engine.HandleDelayedTask(msg)
		if msg.id == taskSearch {
			if n := len(m.engine.SearchResults()); m.searchIndex >= n {
				m.searchIndex = max(n-1, 0)
			}
		}
		return m, tea.Batch(cmds...)
	case cacheSavedMsg:
		m.engine.HandleCacheSaved(msg)
		return m, nil
	case hostsFileChangedMsg:
		hosts, err := loadHostsFile(m.hostsFile)
		if err != nil {
			logger.Warn().Err(err).Msg("hosts file reload failed")
		} else {
			m.hostsErr = ""
			m.engine.SetHosts(hosts)
			m.clampCursor()
		}
		if m.watcher != nil {
			return m, m.watcher.waitCmd()
		}
		return m, nil
	case sshWindowOpenedMsg:
		if msg.err != nil {
			logger.Warn().Err(msg.err).Str("host", msg.host).Msg("tmux window open failed")
			m.notice = "Failed to open tmux window for " + msg.host
			m.noticeIsError = true
		} else {
			m.notice = "Opened tmux window for " + msg.host
			m.noticeIsError = false
		}
		return m, nil
	case interactiveUpdateHintMsg:
		m.updateHint = msg.hint
		m.updateHintIsError = msg.isError
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	if m.mode == modeConfirm && m.confirmForm != nil {
		return m.updateConfirm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.mode == modeSearch {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.mode == modeSearch {
		return m.updateSearch(keyMsg)
	}
	return m.updateList(keyMsg)
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries, refs := m.visibleRows()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		if _, expanded := m.engine.Store().ExpandedHost(); expanded {
			m.engine.CollapseAll()
			m.clampCursor()
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(refs)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		host, ok := m.selectedHost(entries, refs)
		if !ok {
			return m, nil
		}
		if tmuxAvailable() {
			return m, openSSHWindowCmd(host)
		}
		m.pendingHost = host
		return m, tea.Quit
	case "tab":
		host, ok := m.selectedHost(entries, refs)
		if !ok {
			return m, nil
		}
		cmds := m.engine.RequestFetch(host)
		m.clampCursor()
		return m, tea.Batch(cmds...)
	case "a":
		m.notice = ""
		return m, tea.Batch(m.engine.RequestFetchAll()...)
	case "R":
		m.notice = ""
		return m, tea.Batch(m.engine.RefreshAll()...)
	case "X":
		m.confirmKind = confirmClearCache
		m.confirmYes = new(bool)
		m.confirmForm = newConfirmForm(
			"Clear repo cache?",
			"Forgets every discovered repo and refetches all hosts.",
			m.confirmYes,
		)
		m.mode = modeConfirm
		return m, m.confirmForm.Init()
	case "c":
		host, repo, ok := m.selectedRepo(entries, refs)
		if !ok {
			m.notice = "Select a repo to clone"
			m.noticeIsError = false
			return m, nil
		}
		cmd, notice := m.engine.RequestClone(host, repo)
		m.notice = notice.text
		m.noticeIsError = notice.isError
		return m, cmd
	case "/":
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchIndex = 0
		m.searchQuery = ""
		return m, m.engine.SetSearchQuery("")
	case "up":
		if m.searchIndex > 0 {
			m.searchIndex--
		}
		return m, nil
	case "down":
		if m.searchIndex < len(m.engine.SearchResults())-1 {
			m.searchIndex++
		}
		return m, nil
	case "enter":
		result, ok := m.selectedSearchResult()
		if !ok {
			return m, nil
		}
		if tmuxAvailable() {
			return m, openSSHWindowCmd(result.Host)
		}
		m.pendingHost = result.Host
		return m, tea.Quit
	case "tab":
		result, ok := m.selectedSearchResult()
		if !ok {
			return m, nil
		}
		cmd, notice := m.engine.RequestClone(result.Host, result.RepoName)
		m.notice = notice.text
		m.noticeIsError = notice.isError
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	query := m.searchInput.Value()
	if query == m.searchQuery {
		return m, cmd
	}
	m.searchQuery = query
	m.searchIndex = 0
	return m, tea.Batch(cmd, m.engine.SetSearchQuery(query))
}

func (m model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, formCmd := m.confirmForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		accepted := m.confirmYes != nil && *m.confirmYes
		kind := m.confirmKind
		m.mode = modeList
		m.confirmForm = nil
		m.confirmKind = confirmNone
		m.confirmYes = nil
		if !accepted || kind != confirmClearCache {
			return m, nil
		}
		cmds, started := m.engine.ClearAndRefetch()
		if !started {
			m.notice = "Bulk fetch already running, try again once it drains"
			m.noticeIsError = true
			return m, nil
		}
		m.notice = "Cleared repo cache, refetching all hosts"
		m.noticeIsError = false
		m.cursor = 0
		return m, tea.Batch(cmds...)
	case huh.StateAborted:
		m.mode = modeList
		m.confirmForm = nil
		m.confirmKind = confirmNone
		m.confirmYes = nil
		return m, nil
	}
	return m, formCmd
}

// visibleRows builds the render entries and the flattened cursor refs from
// the same source so selection and drawing can never disagree.
func (m model) visibleRows() ([]uiview.HostEntry, []uiview.RowRef) {
	store := m.engine.Store()
	hosts := m.engine.CanonicalHosts()
	entries := make([]uiview.HostEntry, 0, len(hosts))
	for _, host := range hosts {
		state := store.Get(host.Name)
		entry := uiview.HostEntry{
			Host: uiview.BuildHostRow(
				host.Name,
				state.Status == StatusLoading,
				state.Status == StatusLoaded,
				state.Status == StatusError,
				len(state.Repos),
				state.ErrorMessage,
				state.Expanded,
			),
		}
		if state.Expanded && len(state.Repos) > 0 {
			entry.Repos = make([]uiview.RepoRow, 0, len(state.Repos))
			for _, repo := range state.Repos {
				entry.Repos = append(entry.Repos, m.repoRow(repo))
			}
		}
		entries = append(entries, entry)
	}
	return entries, uiview.FlattenRows(entries)
}

func (m model) repoRow(repo string) uiview.RepoRow {
	key := folderKeyForRepo(repo)
	cloned, _ := m.engine.RepoExists(key)
	row := uiview.RepoRow{Name: repo, Cloned: cloned}
	if cloned {
		row.Href = "file://" + filepath.Join(m.cloneDir, key)
	}
	return row
}

func (m model) searchRows() []uiview.SearchRow {
	results := m.engine.SearchResults()
	rows := make([]uiview.SearchRow, 0, len(results))
	for _, result := range results {
		cloned, _ := m.engine.RepoExists(result.FolderKey)
		row := uiview.SearchRow{RepoName: result.RepoName, Host: result.Host, Cloned: cloned}
		if cloned {
			row.Href = "file://" + filepath.Join(m.cloneDir, result.FolderKey)
		}
		rows = append(rows, row)
	}
	return rows
}

func (m model) selectedHost(entries []uiview.HostEntry, refs []uiview.RowRef) (string, bool) {
	if m.cursor < 0 || m.cursor >= len(refs) {
		return "", false
	}
	return entries[refs[m.cursor].HostIndex].Host.Name, true
}

func (m model) selectedRepo(entries []uiview.HostEntry, refs []uiview.RowRef) (string, string, bool) {
	if m.cursor < 0 || m.cursor >= len(refs) {
		return "", "", false
	}
	ref := refs[m.cursor]
	if ref.RepoIndex < 0 {
		return "", "", false
	}
	return entries[ref.HostIndex].Host.Name, entries[ref.HostIndex].Repos[ref.RepoIndex].Name, true
}

func (m model) selectedSearchResult() (SearchResult, bool) {
	results := m.engine.SearchResults()
	if m.searchIndex < 0 || m.searchIndex >= len(results) {
		return SearchResult{}, false
	}
	return results[m.searchIndex], true
}

func (m *model) clampCursor() {
	_, refs := m.visibleRows()
	if m.cursor >= len(refs) {
		m.cursor = len(refs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

type sshWindowOpenedMsg struct {
	host string
	err  error
}

func openSSHWindowCmd(host string) tea.Cmd {
	return func() tea.Msg {
		err := openTmuxSSHWindow(host)
		return sshWindowOpenedMsg{host: host, err: err}
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("HQX"))
	b.WriteString("  ")
	b.WriteString(renderViewHeader())
	b.WriteString("\n\n")

	if m.hostsErr != "" {
		b.WriteString(errorStyle.Render("Cannot read hosts file."))
		b.WriteString("\n")
		b.WriteString(m.hostsErr)
		b.WriteString("\n\nPress q to quit.\n")
		return b.String()
	}

	if m.mode == modeConfirm && m.confirmForm != nil {
		b.WriteString(m.confirmForm.View())
		b.WriteString("\n")
		return b.String()
	}

	if m.mode == modeSearch {
		b.WriteString(inputStyle.Render(m.searchInput.View()))
		b.WriteString("\n")
		b.WriteString(uiview.RenderSearchResults(m.searchRows(), m.searchIndex, m.searchInput.Value(), viewStyles()))
		b.WriteString(m.renderFooter())
		b.WriteString("\nPress enter to connect, tab to clone, esc to leave search.\n")
		return b.String()
	}

	entries, _ := m.visibleRows()
	b.WriteString(uiview.RenderHostTree(entries, m.cursor, m.spinner.View(), viewStyles()))
	b.WriteString(m.renderFooter())
	b.WriteString("\n")
	b.WriteString(m.listHelp(entries))
	b.WriteString("\n")
	return b.String()
}

func (m model) renderFooter() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(secondaryStyle.Render(formatStatsLine(m.engine.Store().TotalRepos(), m.engine.Store().HostsWithRepos())))
	b.WriteString("\n")
	if m.engine.FetchBusy() {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(secondaryStyle.Render("Fetching repo lists..."))
		b.WriteString("\n")
	}
	if task, active := m.engine.CloneActive(); active {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		line := "Cloning " + task.RepoName
		if queued := m.engine.CloneQueued(); queued > 0 {
			line += fmt.Sprintf(" (%d queued)", queued)
		}
		b.WriteString(secondaryStyle.Render(line))
		b.WriteString("\n")
	}
	if m.notice != "" {
		if m.noticeIsError {
			b.WriteString(errorStyle.Render(m.notice))
		} else {
			b.WriteString(warnStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}
	if m.updateHint != "" {
		if m.updateHintIsError {
			b.WriteString(errorStyle.Render(m.updateHint))
		} else {
			b.WriteString(secondaryStyle.Render(m.updateHint))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) listHelp(entries []uiview.HostEntry) string {
	_, refs := m.visibleRows()
	if len(refs) == 0 {
		return "Press q to quit."
	}
	if _, _, onRepo := m.selectedRepo(entries, refs); onRepo {
		return "Press enter to connect, c to clone, tab to collapse, / to search, q to quit."
	}
	return "Press enter to connect, tab to expand, a to fetch all, R to refresh, / to search, q to quit."
}

func formatStatsLine(repos int, hosts int) string {
	if repos == 0 {
		return "No repos discovered yet."
	}
	repoWord := "repos"
	if repos == 1 {
		repoWord = "repo"
	}
	hostWord := "hosts"
	if hosts == 1 {
		hostWord = "host"
	}
	return fmt.Sprintf("%d %s across %d %s", repos, repoWord, hosts, hostWord)
}

func renderViewHeader() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render("Hosts")
}

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFF7DB")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	errorStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	secondaryStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectorNormalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("251"))
	selectorSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)
	selectorDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
	selectorDisabledSelectedStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#7D56F4")).
					Bold(true)
	selectorHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	warnStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	inputStyle          = lipgloss.NewStyle().
				Padding(0, 1)
)

func viewStyles() uiview.Styles {
	return uiview.Styles{
		Header:           func(s string) string { return selectorHeaderStyle.Render(s) },
		Normal:           func(s string) string { return selectorNormalStyle.Render(s) },
		Selected:         func(s string) string { return selectorSelectedStyle.Render(s) },
		Disabled:         func(s string) string { return selectorDisabledStyle.Render(s) },
		DisabledSelected: func(s string) string { return selectorDisabledSelectedStyle.Render(s) },
		Secondary:        func(s string) string { return secondaryStyle.Render(s) },
		Error:            func(s string) string { return errorStyle.Render(s) },
	}
}

type uiMode int

const (
	modeList uiMode = iota
	modeSearch
	modeConfirm
)

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "repo name"
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	return ti
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	return s
}
