// Package tui is the terminal page viewer built on bubbletea.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drummonds/pdfreader/navigator"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// Status texts shown above the page
const (
	StatusEmpty   = "Open a PDF to begin"
	StatusLoaded  = "PDF Loaded."
	StatusNoPages = "Error: PDF contains no pages."
	StatusInvalid = "Error: Invalid or corrupted PDF file."
)

// TitleFunc looks up a display title for a freshly opened document
type TitleFunc func(src navigator.Source) string

// pageRenderedMsg carries a finished page back into Update. seq ties it to the
// request so late results for an old page are dropped.
type pageRenderedMsg struct {
	seq   int
	page  int
	cells string
	err   error
}

// Model represents the state of the terminal viewer.
type Model struct {
	session *navigator.Session
	keys    KeyMap
	help    help.Model
	input   textinput.Model
	title   TitleFunc

	initialPath string
	document    string
	status      string
	cells       string
	rendering   bool
	renderSeq   int
	stale       bool   // the terminal was resized during a render
	pendingOpen string // path entered during a render
	width       int
	height      int
}

// New creates a viewer over session. A non-empty path is opened by Init.
func New(session *navigator.Session, path string, title TitleFunc) *Model {
	input := textinput.New()
	input.Placeholder = "/path/to/document.pdf"
	input.Prompt = "Open: "
	input.CharLimit = 4096

	return &Model{
		session:     session,
		keys:        DefaultKeyMap,
		help:        help.New(),
		input:       input,
		title:       title,
		initialPath: path,
		status:      StatusEmpty,
		width:       80,
		height:      24,
	}
}

// Init is the first command that will be executed.
func (m *Model) Init() tea.Cmd {
	if m.initialPath == "" {
		return nil
	}
	return m.open(m.initialPath)
}

// Status returns the text shown above the page
func (m *Model) Status() string { return m.status }

// State returns the navigation state of the session
func (m *Model) State() navigator.NavigationState { return m.session.State() }

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.rendering {
			m.stale = true
			return m, nil
		}
		return m, m.render()

	case pageRenderedMsg:
		if msg.seq != m.renderSeq {
			return m, nil
		}
		m.rendering = false
		if path := m.pendingOpen; path != "" {
			m.pendingOpen = ""
			m.stale = false
			return m, m.open(path)
		}
		if m.stale {
			m.stale = false
			return m, m.render()
		}
		if msg.err != nil {
			m.cells = ""
			m.status = fmt.Sprintf("Error rendering page %d: %v", msg.page+1, msg.err)
			Logger.Warn("Unable to render page", "page", msg.page, "error", msg.err)
			return m, nil
		}
		m.cells = msg.cells
		m.status = StatusLoaded
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.input.Reset()
		if path == "" {
			return m, nil
		}
		if m.rendering {
			m.pendingOpen = path
			return m, nil
		}
		return m, m.open(path)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Open):
		m.input.Focus()
		return m, textinput.Blink
	}

	// the session is busy until the pending render reports back
	if m.rendering {
		return m, nil
	}

	var move func() (int, error)
	switch {
	case key.Matches(msg, m.keys.Next):
		move = m.session.Advance
	case key.Matches(msg, m.keys.Prev):
		move = m.session.Retreat
	case key.Matches(msg, m.keys.First):
		move = m.session.First
	case key.Matches(msg, m.keys.Last):
		move = m.session.Last
	default:
		return m, nil
	}

	before := m.session.State().Current
	if _, err := move(); err != nil {
		if !navigator.IsBoundary(err) {
			Logger.Debug("Navigation ignored", "error", err)
		}
		return m, nil
	}
	if m.session.State().Current == before {
		return m, nil
	}
	return m, m.render()
}

// open replaces the document and starts rendering its first page
func (m *Model) open(path string) tea.Cmd {
	src := navigator.FromPath(path)
	m.cells = ""
	m.document = ""
	if err := m.session.Open(src); err != nil {
		m.status = openFailureStatus(err)
		Logger.Warn("Unable to open document", "path", path, "error", err)
		return nil
	}
	m.status = StatusLoaded
	m.document = filepath.Base(path)
	if m.title != nil {
		if title := m.title(src); title != "" {
			m.document = title
		}
	}
	Logger.Info("Document opened", "path", path, "pages", m.session.State().Total)
	return m.render()
}

// openFailureStatus maps an open error onto the text shown to the reader
func openFailureStatus(err error) string {
	switch {
	case errors.Is(err, navigator.ErrEmptyDocument):
		return StatusNoPages
	case errors.Is(err, navigator.ErrInvalidDocument):
		return StatusInvalid
	default:
		return fmt.Sprintf("Error loading PDF: %v", err)
	}
}

// render starts rendering the current page in a command. Update does not
// touch the session again until the pageRenderedMsg arrives.
func (m *Model) render() tea.Cmd {
	state := m.session.State()
	if !state.Loaded {
		return nil
	}
	m.renderSeq++
	m.rendering = true
	seq, page := m.renderSeq, state.Current
	cols, rows := m.pageArea()
	session := m.session

	return func() tea.Msg {
		raster, err := session.RenderCurrentPage()
		if err != nil {
			return pageRenderedMsg{seq: seq, page: page, err: err}
		}
		return pageRenderedMsg{seq: seq, page: page, cells: RenderHalfBlocks(raster.Image(), cols, rows)}
	}
}

// pageArea is the cell box left for the page once the chrome is drawn
func (m *Model) pageArea() (int, int) {
	cols := m.width
	rows := m.height - chromeLines
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}
