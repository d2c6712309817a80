package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/diaglog"
)

type screen int

const (
	screenHome screen = iota
	screenRunning
	screenSummary
	screenReports
)

const (
	itemRun     = "Run batch"
	itemDryRun  = "Dry run"
	itemReports = "Reports"
	itemInit    = "Init workspace"
	itemQuit    = "Quit"
)

// visible rows of the per-file list and of the diagnostics tail
const (
	fileRows = 12
	diagRows = 5
)

type menuItem struct {
	title string
	desc  string
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

type model struct {
	theme Theme
	deps  Deps

	scr      screen
	menu     list.Model
	spinner  spinner.Model
	progress progress.Model
	width    int
	toast    string

	workspaceFound bool
	workspaceRoot  string

	running bool
	dryRun  bool
	events  <-chan tea.Msg
	cancel  context.CancelFunc
	diag    *diaglog.Collector

	batchID  string
	total    int
	current  string
	files    []domain.FileResult
	batch    domain.BatchResult
	batchErr error

	reports    []domain.BatchRef
	reportsErr error
}

func Run(deps Deps) error {
	m := newModel(deps)
	p := tea.NewProgram(wrapSafe(m, deps.Logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(deps Deps) model {
	t := DefaultTheme()

	items := []list.Item{
		menuItem{itemRun, "Explode and normalize every drawing in the input directory"},
		menuItem{itemDryRun, "Same as run, without saving drawings"},
		menuItem{itemReports, "Browse saved batch reports"},
		menuItem{itemInit, "Create procblock.yaml, input/ and reports/ here"},
		menuItem{itemQuit, "Exit procblock"},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "procblock"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return model{
		theme:          t,
		deps:           deps,
		scr:            screenHome,
		menu:           l,
		spinner:        s,
		progress:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		workspaceFound: deps.WorkspaceFound,
		workspaceRoot:  deps.Root,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		m.width = w
		m.menu.SetSize(w-4, h-10)
		m.progress.Width = min(max(w-12, 10), 60)
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case batchStartedMsg:
		m.batchID = msg.id
		m.total = msg.total
		return m, listenBatch(m.events)

	case fileStartedMsg:
		m.current = msg.ref.EquipmentNumber
		return m, listenBatch(m.events)

	case fileDoneMsg:
		m.files = append(m.files, msg.result)
		return m, listenBatch(m.events)

	case batchDoneMsg:
		m.running = false
		m.current = ""
		m.events = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.batch = msg.batch
		m.batchErr = msg.err
		if len(msg.batch.Files) > 0 {
			m.files = msg.batch.Files
		}
		m.scr = screenSummary
		return m, nil

	case reportsLoadedMsg:
		m.reports = msg.refs
		m.reportsErr = msg.err
		return m, nil

	case workspaceRefreshedMsg:
		m.workspaceFound = msg.found
		if msg.found {
			m.workspaceRoot = msg.root
		}
		return m, nil

	case initWorkspaceDoneMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.toast = "Workspace ready: " + msg.root
		return m, cmdRefreshWorkspace(m.deps)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.scr == screenHome {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.scr == screenHome && m.menu.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "q":
		if m.scr == screenHome {
			return m, tea.Quit
		}
		if m.running {
			return m, nil
		}
		m.scr = screenHome
		return m, nil

	case "esc", "b":
		if m.running {
			// The batch stops after the current file and reports back.
			if m.cancel != nil {
				m.cancel()
			}
			m.toast = "Cancelling after the current file…"
			return m, nil
		}
		if m.scr != screenHome {
			m.scr = screenHome
			return m, nil
		}

	case "r":
		if m.scr == screenReports {
			return m, cmdLoadReports(m.deps)
		}

	case "enter":
		if m.scr == screenHome {
			it, ok := m.menu.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}
			return m.open(it.title)
		}
		if m.scr == screenSummary {
			m.scr = screenHome
			return m, nil
		}
	}

	if m.scr == screenHome {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) open(title string) (tea.Model, tea.Cmd) {
	m.toast = ""
	switch title {
	case itemQuit:
		return m, tea.Quit
	case itemRun:
		return m.startBatch(false)
	case itemDryRun:
		return m.startBatch(true)
	case itemReports:
		m.scr = screenReports
		m.reports = nil
		m.reportsErr = nil
		return m, cmdLoadReports(m.deps)
	case itemInit:
		root := m.workspaceRoot
		if root == "" {
			root = "."
		}
		return m, cmdInitWorkspaceHere(m.deps, root)
	}
	return m, nil
}

func (m model) startBatch(dryRun bool) (model, tea.Cmd) {
	h, err := startBatchAsync(m.deps, dryRun)
	if err != nil {
		m.toast = err.Error()
		return m, nil
	}

	m.scr = screenRunning
	m.running = true
	m.dryRun = dryRun
	m.events = h.events
	m.cancel = h.cancel
	m.diag = h.diag
	m.batchID = ""
	m.total = 0
	m.current = ""
	m.files = nil
	m.batch = domain.BatchResult{}
	m.batchErr = nil

	return m, tea.Batch(m.spinner.Tick, listenBatch(m.events))
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("procblock") + "\n" +
		m.theme.Subtitle.Render("Explode equipment blocks and move linetype overrides onto layers") + "\n"

	var workspaceBanner string
	if m.workspaceFound {
		workspaceBanner = m.theme.Help.Render(fmt.Sprintf("Workspace: %s  •  input: %s  •  policy: %s", m.workspaceRoot, m.deps.InputDir, m.deps.Policy))
	} else {
		workspaceBanner = m.theme.Card.Render(
			"⚠ No workspace found; running on defaults.\n\nCreate one with Init workspace.",
		)
	}

	toast := ""
	if m.toast != "" {
		toast = "\n" + m.theme.Toast.Render(m.toast) + "\n"
	}

	switch m.scr {
	case screenHome:
		help := m.theme.Help.Render("↑/↓ navigate • enter open • / search • q quit")
		return wrap.Render(header + "\n" + workspaceBanner + "\n\n" + m.theme.Card.Render(m.menu.View()) + toast + "\n" + help)

	case screenRunning:
		return wrap.Render(header + "\n" + m.theme.Card.Render(m.runningView()) + toast)

	case screenSummary:
		return wrap.Render(header + "\n" + m.theme.Card.Render(m.summaryView()) + toast)

	case screenReports:
		return wrap.Render(header + "\n" + m.theme.Card.Render(m.reportsView()) + toast)

	default:
		return wrap.Render(header + "\n" + "unknown state")
	}
}

func (m model) runningView() string {
	var b strings.Builder

	title := "Processing"
	if m.dryRun {
		title = "Processing (dry run)"
	}
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	if m.current != "" {
		b.WriteString(" " + m.current)
	} else {
		b.WriteString(" discovering drawings…")
	}
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(percent(len(m.files), m.total)))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", len(m.files), m.total))

	b.WriteString(m.fileList())

	if m.diag != nil {
		if tail := m.diag.Tail(diagRows); len(tail) > 0 {
			b.WriteString("\n")
			for _, l := range tail {
				b.WriteString(m.theme.Help.Render(clampString(l, m.lineWidth())))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("esc cancel • ctrl+c quit"))
	return b.String()
}

func (m model) summaryView() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Batch finished"))
	b.WriteString("\n\n")
	b.WriteString(renderSummary(m.batch))
	if m.batchErr != nil {
		b.WriteString(m.theme.Fail.Render("Error:    " + userMessage(m.batchErr)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.fileList())
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("enter/esc back • q home"))
	return b.String()
}

func (m model) reportsView() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Reports"))
	b.WriteString("\n\n")

	switch {
	case m.reportsErr != nil:
		b.WriteString(m.theme.Fail.Render(userMessage(m.reportsErr)))
		b.WriteString("\n")
	case len(m.reports) == 0:
		b.WriteString("(no reports found)\n")
	default:
		for i, r := range m.reports {
			if i == fileRows {
				b.WriteString(m.theme.Help.Render(fmt.Sprintf("… %d more", len(m.reports)-fileRows)))
				b.WriteString("\n")
				break
			}
			b.WriteString(clampString(renderReportLine(r), m.lineWidth()))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("r reload • esc/b back • q home"))
	return b.String()
}

// fileList shows the most recent rows.
func (m model) fileList() string {
	if len(m.files) == 0 {
		return ""
	}
	start := 0
	if len(m.files) > fileRows {
		start = len(m.files) - fileRows
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(m.theme.Help.Render(fmt.Sprintf("… %d earlier", start)))
		b.WriteString("\n")
	}
	for _, fr := range m.files[start:] {
		b.WriteString(renderFileLine(m.theme, fr, m.lineWidth()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) lineWidth() int {
	if m.width <= 0 {
		return 100
	}
	return max(m.width-10, 20)
}
