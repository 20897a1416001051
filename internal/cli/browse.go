package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/rule"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command, an interactive rule browser.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the rule collection interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if coll.Len() == 0 {
				printInfo("Collection is empty")
				printNextStep("Create a rule from a pathway", appName+" pathway rule <file> --save")
				return nil
			}

			model := newRuleListModel(coll)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}

			m, ok := final.(ruleListModel)
			if !ok || !m.usageDirty {
				return nil
			}
			return st.Save(ctx, coll)
		},
	}
}

// =============================================================================
// ruleListModel - Interactive rule browsing
// =============================================================================

// ruleListModel is the bubbletea model for the rule browser. It has two
// modes: the list, and a detail view of the rule under the cursor.
type ruleListModel struct {
	coll       *collection.Collection
	rules      []*rule.Rule
	cursor     int
	offset     int
	height     int
	showDetail bool
	usageDirty bool
}

func newRuleListModel(coll *collection.Collection) ruleListModel {
	return ruleListModel{
		coll:   coll,
		rules:  coll.Rules(),
		height: 15,
	}
}

func (m ruleListModel) Init() tea.Cmd {
	return nil
}

func (m ruleListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showDetail {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "backspace":
				m.showDetail = false
			case "u":
				m.recordUsage()
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rules)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			if len(m.rules) > 0 {
				m.showDetail = true
			}
		case "u":
			m.recordUsage()
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 7
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m *ruleListModel) recordUsage() {
	if len(m.rules) == 0 {
		return
	}
	m.coll.RecordUsage(m.rules[m.cursor].ID)
	m.usageDirty = true
}

func (m ruleListModel) View() string {
	if m.showDetail {
		return m.detailView()
	}
	return m.listView()
}

func (m ruleListModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Rule Collection"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  u use  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rules) {
		end = len(m.rules)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		r := m.rules[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			r.Summary(48),
			string(r.Kind()),
			fmt.Sprintf("%d", r.UseCount),
			formatRelativeTime(r.LastUsed),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Rule", "Kind", "Uses", "Last used").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			if col >= 3 {
				return listDimStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rules))))

	return b.String()
}

func (m ruleListModel) detailView() string {
	r := m.rules[m.cursor]
	var b strings.Builder

	title := r.Name
	if title == "" {
		title = r.Summary(60)
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back  u use  q quit"))
	b.WriteString("\n\n")

	b.WriteString(listDimStyle.Render("ID    ") + r.ID + "\n")
	b.WriteString(listDimStyle.Render("Kind  ") + string(r.Kind()) + "\n")
	b.WriteString(listDimStyle.Render("Used  ") + fmt.Sprintf("%d times, last %s", r.UseCount, r.FormattedLastUsed()) + "\n")
	if r.Description != "" {
		b.WriteString(listDimStyle.Render("About ") + r.Description + "\n")
	}
	b.WriteString("\n")
	b.WriteString(r.Text)
	b.WriteString("\n")

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t *time.Time) string {
	if t == nil {
		return "never"
	}

	diff := time.Since(*t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
