package tui

import "github.com/charmbracelet/lipgloss"

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginBottom(1)

	reminderCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("214"))

	meetingCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("39"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)

var tagColors = map[string]string{
	"new":           "45",
	"not_connected": "208",
	"follow_up":     "214",
	"missed":        "196",
	"trending":      "118",
	"dropped":       "241",
	"won":           "46",
}

func tagBadge(tag string) string {
	color, ok := tagColors[tag]
	if !ok {
		color = "245"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color(color)).
		Padding(0, 1).
		Render(tag)
}

func priorityBadge(priority string) string {
	var color string
	switch priority {
	case "high":
		color = "196"
	case "medium":
		color = "214"
	default:
		color = "245"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Render("[" + priority + "]")
}
