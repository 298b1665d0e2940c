package banner

import (
	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(lipgloss.Color("#04B575")).
		Bold(true)

	ascii := `
               ____                   __
   _________ _/ / /_  ___  ____  _____/ /_
  / ___/ __ '/ / __ \/ _ \/ __ \/ ___/ __ \
 (__  ) /_/ / / /_/ /  __/ / / / /__/ / / /
/____/\__, /_/_.___/\___/_/ /_/\___/_/ /_/
        /_/                                `

	return "\n" + style.Render(ascii) + "\n"
}
