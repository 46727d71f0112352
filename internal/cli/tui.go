package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ui5-community/plugin-loader/pkg/extension"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ExtensionListModel - Interactive extension browser
// =============================================================================

// ExtensionListModel is the bubbletea model for browsing resolved extensions.
// The upper pane lists the descriptors in final order; the lower pane shows
// the configuration payload of the highlighted one.
type ExtensionListModel struct {
	Extensions []extension.Descriptor
	Cursor     int
	Height     int
	Offset     int
}

// NewExtensionListModel creates a browser over the resolved descriptor list.
func NewExtensionListModel(list []extension.Descriptor) ExtensionListModel {
	return ExtensionListModel{
		Extensions: list,
		Height:     15,
	}
}

func (m ExtensionListModel) Init() tea.Cmd {
	return nil
}

func (m ExtensionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Extensions)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ExtensionListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Resolved Extensions"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.Extensions) == 0 {
		b.WriteString(listDimStyle.Render("  no extensions resolved"))
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(m.Extensions) {
		end = len(m.Extensions)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		d := m.Extensions[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		hint := "—"
		switch {
		case d.OrderHint.After != "":
			hint = "after " + d.OrderHint.After
		case d.OrderHint.Before != "":
			hint = "before " + d.OrderHint.Before
		}

		mount := d.MountPath
		if mount == "" {
			mount = "—"
		}

		rows = append(rows, []string{cursor, d.Name, string(d.Category), hint, mount, string(d.Provenance)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Extension", "Kind", "Order", "Mount", "Source").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(m.configView())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Extensions))))

	return b.String()
}

// configView renders the highlighted descriptor's configuration payload.
func (m ExtensionListModel) configView() string {
	d := m.Extensions[m.Cursor]
	if len(d.Configuration) == 0 {
		return listDimStyle.Render("  no configuration")
	}

	var b strings.Builder
	b.WriteString(StyleHighlight.Render("  configuration"))
	b.WriteString("\n")
	for k, v := range d.Configuration {
		b.WriteString(fmt.Sprintf("    %s %s\n", listDimStyle.Render(k+":"), StyleValue.Render(fmt.Sprintf("%v", v))))
	}
	return strings.TrimRight(b.String(), "\n")
}
