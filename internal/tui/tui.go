// Package tui is a terminal front end for the session controller. It only
// renders published snapshots and forwards key presses as commands.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/chaz8081/bleterm/internal/registry"
	"github.com/chaz8081/bleterm/internal/session"
)

// Controller is the subset of session.Controller the TUI drives.
type Controller interface {
	StartScanning()
	StopScanning()
	ConnectToDevice(id string)
	Disconnect()
	DismissError()
}

// SnapshotMsg delivers a new controller snapshot to the model.
type SnapshotMsg session.Snapshot

// Forward sends every snapshot from updates to p until updates is closed.
func Forward(p *tea.Program, updates <-chan session.Snapshot) {
	for snap := range updates {
		p.Send(SnapshotMsg(snap))
	}
}

const (
	colorBlue    = "#8BE9FD"
	colorGreen   = "#50FA7B"
	colorRed     = "#FF5555"
	colorComment = "#6272A4"
	colorFg      = "#F8F8F2"
	colorPurple  = "#BD93F9"
)

type styles struct {
	title, scan, connect, disconnect, selected, caption, log, errBox, help lipgloss.Style
}

func newStyles() styles {
	button := lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color(colorFg))
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPurple)),
		scan:       button.Background(lipgloss.Color("#1E6FD9")),
		connect:    button.Background(lipgloss.Color("#2E8B57")),
		disconnect: button.Background(lipgloss.Color("#B22222")),
		selected:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)).Bold(true),
		caption:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment)),
		log:        lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		errBox: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorRed)).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment)),
	}
}

// Model is the bubbletea model for bleterm.
type Model struct {
	ctrl Controller
	snap session.Snapshot
	// The selection follows the device with RowID row across snapshots;
	// cursor is its index in snap.Devices.
	row    uuid.UUID
	cursor int
	height int
	styles styles
}

// New creates a model showing initial until the first SnapshotMsg arrives.
func New(ctrl Controller, initial session.Snapshot) *Model {
	m := &Model{
		ctrl:   ctrl,
		snap:   initial,
		styles: newStyles(),
	}
	m.follow()
	return m
}

func (*Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		m.follow()
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		if m.snap.Scanning {
			m.ctrl.StopScanning()
		} else {
			m.ctrl.StartScanning()
		}
	case "up", "k":
		m.moveTo(m.cursor - 1)
	case "down", "j":
		m.moveTo(m.cursor + 1)
	case "enter":
		if d, ok := m.selected(); ok {
			if d.Connected {
				m.ctrl.Disconnect()
			} else {
				m.ctrl.ConnectToDevice(d.ID)
			}
		}
	case "esc":
		if m.snap.Error.Present {
			m.ctrl.DismissError()
		}
	}
	return m, nil
}

func (m *Model) View() string {
	s := m.styles

	scanLabel := "Start Scanning"
	if m.snap.Scanning {
		scanLabel = "Stop Scanning"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		s.title.Render("Bluetooth Devices"), "  ", s.scan.Render(scanLabel),
		"  ", s.caption.Render(m.snap.State.String()))

	sections := []string{header, "", m.renderDevices(), "", s.title.Render("Log Messages:"), m.renderLog()}
	if m.snap.Error.Present {
		sections = append(sections, "", s.errBox.Render("Error: "+m.snap.Error.Message+"  (esc to dismiss)"))
	}
	sections = append(sections, "", s.help.Render("s: scan  ↑/↓: select  enter: connect/disconnect  q: quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderDevices() string {
	s := m.styles
	if len(m.snap.Devices) == 0 {
		return s.caption.Render("No devices discovered.")
	}

	var b strings.Builder
	for i, d := range m.snap.Devices {
		cursor := "  "
		name := d.Name
		if i == m.cursor {
			cursor = "> "
			name = s.selected.Render(name)
		}
		button := s.connect.Render("Connect")
		if d.Connected {
			button = s.disconnect.Render("Disconnect")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, name, button)
		fmt.Fprintf(&b, "    %s\n", s.caption.Render(fmt.Sprintf("UUID: %s  RSSI: %d dBm  Version: %s", d.ID, d.RSSI, d.RadioGeneration)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderLog() string {
	entries := m.snap.Log
	if limit := m.logLines(); len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = m.styles.log.Render(e.String())
	}
	return strings.Join(lines, "\n")
}

// logLines is how many trailing log lines fit below the device list.
func (m *Model) logLines() int {
	if m.height == 0 {
		return 10
	}
	n := m.height - 2*len(m.snap.Devices) - 10
	if n < 3 {
		return 3
	}
	return n
}

func (m *Model) selected() (registry.Device, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Devices) {
		return registry.Device{}, false
	}
	return m.snap.Devices[m.cursor], true
}

// follow puts the cursor back on the selected device after a snapshot.
// When that device is gone the cursor keeps its index, clamped to the list.
func (m *Model) follow() {
	if m.row != uuid.Nil {
		for i, d := range m.snap.Devices {
			if d.RowID == m.row {
				m.cursor = i
				return
			}
		}
	}
	m.moveTo(m.cursor)
}

func (m *Model) moveTo(i int) {
	m.cursor = i
	if m.cursor >= len(m.snap.Devices) {
		m.cursor = len(m.snap.Devices) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.row = uuid.Nil
	if d, ok := m.selected(); ok {
		m.row = d.RowID
	}
}
