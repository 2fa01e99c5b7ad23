package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/config"
	"github.com/five82/matdeck/internal/prefs"
	"github.com/five82/matdeck/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewAssets View = iota
	ViewLogs
)

// AssetFilter represents the table filter mode.
type AssetFilter int

const (
	FilterAll AssetFilter = iota
	FilterNoParameters
	FilterNoThumbnail
	FilterSelected
)

// Actions is the part of actions.Service the console drives.
type Actions interface {
	Upload(ctx context.Context, paths []string, opts actions.UploadOptions) actions.UploadResult
	ExtractParameters(ctx context.Context, id string) error
	GenerateThumbnail(ctx context.Context, id string, resolution int) error
	Delete(ctx context.Context, id string) error
	BatchDelete(ctx context.Context, ids []string) actions.BatchResult
	BatchExtract(ctx context.Context, ids []string) actions.BatchResult
	BatchGenerateThumbnails(ctx context.Context, ids []string, resolution int) actions.BatchResult
}

var _ Actions = (*actions.Service)(nil)

// Options configures the console.
type Options struct {
	Context       context.Context
	Actions       Actions
	Store         *state.Store
	Config        *config.Config
	PollTick      time.Duration // snapshot refresh; zero uses DefaultUIInterval
	ThemeName     string
	PrefsPath     string
	Notifications <-chan actions.Notification
	LogPath       string
	Clipboard     func(string) error // nil uses the system clipboard
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	actions    Actions
	store      *state.Store
	config     *config.Config
	prefsPath  string
	pollTick   time.Duration
	logPath    string
	notes      <-chan actions.Notification
	clipboard  func(string) error
	resolution int

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	focusedPane int // 0 = table, 1 = detail

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Table state
	selectedRow int
	filterMode  AssetFilter
	search      searchState

	// Detail state
	detailViewport viewport.Model
	detailFor      string

	// Log state
	logViewport viewport.Model
	logState    logState

	// Overlays
	modal    Modal
	showHelp bool

	// Activity
	spinner spinner.Model
	busy    int
	toasts  []toast
}

type toast struct {
	level   actions.Level
	message string
	at      time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	resolution := 0
	if opts.Config != nil {
		resolution = opts.Config.ThumbnailResolution
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ctx:         ctx,
		actions:     opts.Actions,
		store:       opts.Store,
		config:      opts.Config,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		logPath:     opts.LogPath,
		notes:       opts.Notifications,
		clipboard:   copyFn,
		resolution:  resolution,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.ThemeName),
		currentView: ViewAssets,
		spinner:     sp,
	}
	m.search = newSearchState()
	m.logState = newLogState()
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.notes != nil {
		cmds = append(cmds, waitForNotification(m.notes))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampSelection()
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case notificationMsg:
		m.pushToast(actions.Notification(msg))
		return m, waitForNotification(m.notes)

	case toastMsg:
		m.pushToast(actions.Notification(msg))
		return m, nil

	case actionRequest:
		return m, m.startAction(msg)

	case actionDoneMsg:
		if m.busy > 0 {
			m.busy--
		}
		if m.store != nil {
			m.applySnapshot(m.store.Snapshot())
		}
		return m, nil

	case logEntriesMsg:
		m.handleLogEntries(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey routes keyboard input: overlays first, then global keys, then
// the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.search.active {
		return m.handleSearchInput(msg)
	}
	if m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		return m, m.cycleTheme()

	case key.Matches(msg, m.keys.ViewAssets):
		m.currentView = ViewAssets
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.reload()
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleAssetKey(msg)
	}
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	m.expireToasts(now)

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// applySnapshot swaps in a new snapshot, keeping the cursor on the same asset.
func (m *Model) applySnapshot(snap state.Snapshot) {
	focused := m.focusedID()
	m.snapshot = snap
	m.lastUpdated = time.Now()
	m.restoreSelection(focused)
	m.updateDetailViewport()
}

// refreshSnapshot reads the store synchronously after a local mutation.
func (m *Model) refreshSnapshot() {
	if m.store != nil {
		m.applySnapshot(m.store.Snapshot())
	}
}

// cycleTheme switches to the next theme and persists the choice.
func (m *Model) cycleTheme() tea.Cmd {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.updateDetailViewport()
	m.logState.contentVersion++
	m.updateLogViewport()
	path, name := m.prefsPath, m.theme.Name
	return func() tea.Msg {
		if err := prefs.SetTheme(path, name); err != nil {
			return toastMsg{Level: actions.LevelWarning, Message: "Could not save theme: " + err.Error(), At: time.Now()}
		}
		return nil
	}
}

// reload triggers a cache reload off the UI goroutine.
func (m *Model) reload() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store := m.store
	return m.startAction(actionRequest{label: "reload", run: func(ctx context.Context) {
		_ = store.LoadAssets(ctx)
	}})
}

// startAction runs req in a command. The app context is used, so leaving a
// dialog or switching views never cancels work already started.
func (m *Model) startAction(req actionRequest) tea.Cmd {
	if req.run == nil {
		return nil
	}
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		req.run(ctx)
		return actionDoneMsg{label: req.label}
	}
}

func (m *Model) pushToast(n actions.Notification) {
	if strings.TrimSpace(n.Message) == "" {
		return
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	m.toasts = append(m.toasts, toast{level: n.Level, message: n.Message, at: n.At})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) expireToasts(now time.Time) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Sub(t.at) < ToastTTL {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderToastLine())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderAssets()
	}
}

func (m Model) contentHeight() int {
	return max(m.height-chromeRows, 3)
}

// renderOverlay centers a modal frame over the screen background.
func (m Model) renderOverlay(content string, width int) string {
	return overlayFrame(m.theme, m.width, m.height, content, width)
}

func placeCenter(theme Theme, width, height int, content string) string {
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type notificationMsg actions.Notification

type toastMsg actions.Notification

// actionRequest asks the model to run work off the UI goroutine.
type actionRequest struct {
	label string
	run   func(ctx context.Context)
}

type actionDoneMsg struct {
	label string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func waitForNotification(ch <-chan actions.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func requestCmd(req actionRequest) tea.Cmd {
	return func() tea.Msg { return req }
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
