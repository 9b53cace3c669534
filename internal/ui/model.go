package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"streamchat/internal/attachment"
	"streamchat/internal/highlight"
	"streamchat/internal/orchestrator"
	"streamchat/internal/uiqueue"
	"streamchat/internal/watcher"
)

// StatusMsg replaces the status line.
type StatusMsg string

// Options configures a Model.
type Options struct {
	UserName      string
	AssistantName string
	ModelName     string
	MaxBytes      int64
}

// Model is the chat TUI. It is the orchestrator's message list owner,
// input and upload receiver; the orchestrator reaches it only through
// session tasks delivered as uiqueue.TaskMsg.
type Model struct {
	styles   *Styles
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	list     *MessageList
	uploader *Uploader
	session  orchestrator.Session
	submit   func(orchestrator.SubmitEvent)
	busy     func() bool
	staged   func() []attachment.Attachment
	copyText func(string) error

	highlighter *highlight.Highlighter

	opts    Options
	status  string
	preview string
	inbox   []string

	width  int
	height int
	ready  bool
}

// NewModel creates a new TUI model.
func NewModel(opts Options) *Model {
	styles := DefaultStyles()

	ta := textarea.New()
	ta.Placeholder = "Type a message or /help..."
	ta.Focus()
	ta.CharLimit = 10000
	ta.ShowLineNumbers = false
	ta.SetHeight(1)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	m := &Model{
		styles:   styles,
		input:    ta,
		spinner:  s,
		list:     NewMessageList(styles),
		uploader: NewUploader(opts.MaxBytes),
		busy:     func() bool { return false },
		copyText: clipboard.WriteAll,

		highlighter: highlight.New(""),
		opts:        opts,
	}
	m.list.onChange = m.refresh
	m.uploader.onClear = m.ClearInbox
	return m
}

// MessageList returns the transcript the orchestrator writes to.
func (m *Model) MessageList() *MessageList { return m.list }

// Uploader returns the /attach file receiver.
func (m *Model) Uploader() *Uploader { return m.uploader }

// OnSubmit implements orchestrator.Input.
func (m *Model) OnSubmit(fn func(orchestrator.SubmitEvent)) { m.submit = fn }

// SetSession sets the session submissions are made in.
func (m *Model) SetSession(s orchestrator.Session) { m.session = s }

// SetBusyFunc sets how the model learns whether a reply is streaming.
func (m *Model) SetBusyFunc(fn func() bool) {
	if fn != nil {
		m.busy = fn
	}
}

// SetStagedFunc sets where the "attached:" line reads staged files from.
// Without it the line lists what the uploader and inbox reported.
func (m *Model) SetStagedFunc(fn func() []attachment.Attachment) { m.staged = fn }

// SetStatus replaces the status line. Call it from a session task or Update.
func (m *Model) SetStatus(status string) { m.status = status }

// Init initializes the TUI.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles TUI events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case uiqueue.TaskMsg:
		msg.Run()
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case watcher.FileChangeMsg:
		m.handleInboxEvent(watcher.Event(msg))
		return m, nil

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.preview = ""
			return m, nil
		case tea.KeyEnter:
			return m, m.handleEnter()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(width - 4)
	m.list.SetWidth(width)
	m.refresh()
}

// refresh re-renders the transcript and keeps the newest text in view.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.list.Render(m.opts.UserName))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) handleEnter() tea.Cmd {
	raw := m.input.Value()
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	m.input.Reset()

	if strings.HasPrefix(value, "/") {
		return m.runCommand(value)
	}

	if m.busy() {
		m.status = "Still answering; message not sent"
		return nil
	}
	if m.submit != nil {
		m.status = ""
		m.submit(orchestrator.SubmitEvent{Session: m.session, Text: raw})
	}
	return nil
}

func (m *Model) handleInboxEvent(ev watcher.Event) {
	switch ev.Operation {
	case watcher.OpStage, watcher.OpRestage:
		m.inbox = appendUnique(m.inbox, ev.Name)
		m.status = fmt.Sprintf("inbox: staged %s", ev.Name)
	case watcher.OpUnstage:
		m.inbox = removeName(m.inbox, ev.Name)
		m.status = fmt.Sprintf("inbox: removed %s", ev.Name)
	case watcher.OpReject:
		m.status = fmt.Sprintf("inbox: %s rejected: %v", ev.Name, ev.Err)
	}
}

// ClearInbox forgets the inbox names shown as staged.
func (m *Model) ClearInbox() { m.inbox = nil }

// View renders the TUI.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Viewport.Render(m.viewport.View()))
	b.WriteString("\n")

	if m.preview != "" {
		b.WriteString(m.preview)
		b.WriteString("\n")
	}

	if staged := m.stagedNames(); len(staged) > 0 {
		b.WriteString(m.styles.Staged.Render("attached: " + strings.Join(staged, ", ")))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Input.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m *Model) stagedNames() []string {
	if m.staged == nil {
		return append(m.uploader.Staged(), m.inbox...)
	}
	atts := m.staged()
	names := make([]string, len(atts))
	for i, a := range atts {
		names[i] = a.Name
	}
	return names
}

func (m *Model) statusBar() string {
	left := m.opts.ModelName
	if m.busy() {
		left = m.spinner.View() + " " + left
	}
	status := m.status
	if status == "" {
		status = "/help for commands"
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.styles.Muted.Render(status))
	return m.styles.StatusBar.Width(m.width).Render(bar)
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}

func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a positive number, got %q", arg)
	}
	return n, nil
}
