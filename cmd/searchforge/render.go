package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"searchforge/internal/adapter/tool"
)

var (
	indexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	queryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	contentStyle = lipgloss.NewStyle().Width(96).PaddingLeft(4)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// renderResults formats results for a terminal.
func renderResults(res *tool.SearchResults) string {
	if len(res.Results) == 0 {
		return emptyStyle.Render("no results") + "\n"
	}

	var b strings.Builder
	for i, r := range res.Results {
		b.WriteString(indexStyle.Render(fmt.Sprintf("%2d.", i+1)))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(r.Title))
		b.WriteString(" ")
		b.WriteString(queryStyle.Render("[" + r.Query + "]"))
		b.WriteString("\n    ")
		b.WriteString(urlStyle.Render(r.URL))
		b.WriteString("\n")
		b.WriteString(contentStyle.Render(strings.TrimSpace(r.Content)))
		b.WriteString("\n\n")
	}
	return b.String()
}
