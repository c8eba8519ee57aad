package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/vpcmap/pkg/topology"
)

// pickerModel is the bubbletea model behind "accounts pick": a scrolling
// multi-select over the discovered accounts.
type pickerModel struct {
	accounts []topology.AccountScope
	selected map[int]bool
	cursor   int
	offset   int
	height   int
	done     bool
	aborted  bool
}

func newPickerModel(accs []topology.AccountScope) pickerModel {
	return pickerModel{
		accounts: accs,
		selected: make(map[int]bool),
		height:   15,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.accounts)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case " ", "x":
			m.selected[m.cursor] = !m.selected[m.cursor]
		case "a":
			all := len(m.Picked()) < len(m.accounts)
			for i := range m.accounts {
				m.selected[i] = all
			}
		case "enter":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Select Accounts"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  space toggle  a all  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.accounts))
	window := m.accounts[m.offset:end]
	marked := make(map[int]bool)
	for i := range window {
		marked[i] = m.selected[m.offset+i]
	}
	b.WriteString(accountsTable(window, marked, m.cursor-m.offset))
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d selected · %d/%d]", len(m.Picked()), m.cursor+1, len(m.accounts))))
	return b.String()
}

// Picked returns the selected accounts in list order, or nil if the
// picker was aborted.
func (m pickerModel) Picked() []topology.AccountScope {
	if m.aborted {
		return nil
	}
	var out []topology.AccountScope
	for i, a := range m.accounts {
		if m.selected[i] {
			out = append(out, a)
		}
	}
	return out
}
