// Package tui provides a Bubble Tea browser for mirro backups.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/mirro/internal/backup"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Section heading above the list
	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	// Key=value label inside an expanded backup
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Selected row in the backup list
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Model ────────────────────

// Model is the root Bubble Tea model for the backup browser.
type Model struct {
	root     string
	records  []*backup.Record
	cursor   int
	expanded map[int]bool
	bodies   map[int]string // lazily rendered preview blocks
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// New creates a browser over the given backups, newest first.
func New(records []*backup.Record, root string) Model {
	return Model{
		root:     root,
		records:  records,
		expanded: make(map[int]bool),
		bodies:   make(map[int]string),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.rebuild()
				return m, nil
			}
		case "down", "j":
			if m.cursor < len(m.records)-1 {
				m.cursor++
				m.rebuild()
				return m, nil
			}
		case "enter", " ":
			if len(m.records) > 0 {
				if m.expanded[m.cursor] {
					delete(m.expanded, m.cursor)
				} else {
					m.expanded[m.cursor] = true
				}
				m.rebuild()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// title(1) + statusBar(1) = 2 fixed rows
		vpHeight := m.height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewport.SetContent(m.renderList())
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  mirro backups  " + m.root)

	hint := "  ↑/↓ select  enter expand/collapse  q quit"
	pct := fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View(), statusBar)
}

func (m *Model) rebuild() {
	m.viewport.SetContent(m.renderList())
}

// ── Renderers ─────────────────────────────────────────────────────────────────

func (m *Model) renderList() string {
	var sb strings.Builder
	sb.WriteString("\n" + sectionHeader.Render(fmt.Sprintf("  Backups (%d)", len(m.records))) + "\n\n")

	if len(m.records) == 0 {
		sb.WriteString(dimStyle.Render("  (no backups yet)") + "\n")
		return sb.String()
	}

	for i, rec := range m.records {
		ts := timeStyle.Render(rec.Timestamp.Format("2006-01-02 15:04:05"))
		path := rec.OriginalPath
		if path == "" {
			path = rec.Name
		}

		toggle := dimStyle.Render("  ▶ ")
		if m.expanded[i] {
			toggle = dimStyle.Render("  ▼ ")
		}

		row := fmt.Sprintf("%s%s  %s", toggle, ts, fileStyle.Render(path))
		if i == m.cursor {
			// Pad to width so the highlight fills the line
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[i] {
			sb.WriteString(m.preview(i))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// preview renders the selected backup's metadata and preserved content,
// loading and caching it on first expansion.
func (m *Model) preview(i int) string {
	if cached, ok := m.bodies[i]; ok {
		return cached
	}

	rec := m.records[i]
	var sb strings.Builder
	border := dimStyle.Render("  " + strings.Repeat("─", max(m.width-4, 8)))
	sb.WriteString(border + "\n")

	data, err := os.ReadFile(rec.Path())
	if err != nil {
		sb.WriteString(dimStyle.Render("  (cannot read backup: "+err.Error()+")") + "\n")
		sb.WriteString(border + "\n")
		m.bodies[i] = sb.String()
		return m.bodies[i]
	}
	hdr, body, err := backup.ParseHeader(data)
	if err != nil {
		sb.WriteString(dimStyle.Render("  (not a readable backup: "+err.Error()+")") + "\n")
		sb.WriteString(border + "\n")
		m.bodies[i] = sb.String()
		return m.bodies[i]
	}

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-12s", label)) + "  " + value + "\n")
	}
	row("Original:", hdr.OriginalPath)
	row("Taken:", hdr.Timestamp.Format("2006-01-02 15:04:05")+" UTC")
	row("File:", rec.Name)
	sb.WriteString("\n")

	for _, line := range strings.Split(strings.TrimRight(string(body), "\n"), "\n") {
		sb.WriteString(dimStyle.Render("  "+line) + "\n")
	}
	sb.WriteString(border + "\n")

	m.bodies[i] = sb.String()
	return m.bodies[i]
}

// Run starts the browser over the backups under root.
func Run(records []*backup.Record, root string) error {
	p := tea.NewProgram(New(records, root), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
