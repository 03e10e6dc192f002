package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/skip2/go-qrcode"
)

// renderShare renders the config URL as a QR code so another device can
// open the same feed.
func (a *App) renderShare() string {
	var content strings.Builder

	content.WriteString(a.styles.ShareTitle.Render("Share this feed"))
	content.WriteString("\n\n")

	url := a.client.ConfigURL()
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		content.WriteString("Failed to generate QR code")
	} else {
		qrStr := qr.ToSmallString(false)
		lines := strings.Split(qrStr, "\n")
		// ToSmallString packs two modules per line
		if lipgloss.Width(lines[0]) > a.width-10 || len(lines) > a.height-10 {
			content.WriteString(a.styles.ShareHelp.Render("(Resize terminal for better view)"))
			content.WriteString("\n")
		}
		content.WriteString(qrStr)
	}

	content.WriteString("\n")
	content.WriteString(a.styles.ShareHelp.Render(url))
	content.WriteString("\n")
	content.WriteString(a.styles.ShareHelp.Render("Esc to close"))

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Center,
		a.styles.ShareContainer.Render(content.String()),
	)
}
