// Package render draws transcript messages for terminal clients.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
)

// Styles groups the lipgloss styles used for a transcript.
type Styles struct {
	User         lipgloss.Style
	Bot          lipgloss.Style
	System       lipgloss.Style
	Bold         lipgloss.Style
	Label        lipgloss.Style
	Preview      lipgloss.Style
	SQL          lipgloss.Style
	Notification lipgloss.Style
}

// DefaultStyles returns the colour scheme used by askcli.
func DefaultStyles() Styles {
	return Styles{
		User:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),   // Cyan
		Bot:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),   // Purple
		System: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true), // Gray
		Bold:   lipgloss.NewStyle().Bold(true),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Preview: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		SQL:          lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Notification: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
	}
}

// PlainStyles renders without colours or borders, for pipes and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		User: plain, Bot: plain, System: plain, Bold: plain,
		Label: plain, Preview: plain, SQL: plain, Notification: plain,
	}
}

// Renderer turns messages into terminal text.
type Renderer struct {
	styles  Styles
	showSQL bool
}

// NewRenderer creates a renderer. showSQL controls whether generated queries
// are printed below answers.
func NewRenderer(styles Styles, showSQL bool) *Renderer {
	return &Renderer{styles: styles, showSQL: showSQL}
}

// Message renders one transcript entry.
func (r *Renderer) Message(msg chat.Message) string {
	var b strings.Builder

	b.WriteString(r.senderLabel(msg.Sender))
	b.WriteString(" ")
	b.WriteString(r.Text(msg.Text))

	if msg.Sender != chat.SenderBot {
		return b.String()
	}

	if msg.ResultPreview != "" {
		b.WriteString("\n")
		b.WriteString(r.styles.Preview.Render(msg.ResultPreview))
	}
	if r.showSQL && msg.SQLQuery != "" {
		b.WriteString("\n")
		b.WriteString(r.styles.Label.Render("SQL Query:"))
		b.WriteString("\n")
		b.WriteString(r.styles.SQL.Render(msg.SQLQuery))
	}
	if len(msg.SuggestedFollowUps) > 0 {
		b.WriteString("\n")
		b.WriteString(r.styles.Label.Render("Suggested Questions:"))
		for i, q := range msg.SuggestedFollowUps {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, q))
		}
	}
	return b.String()
}

// Text renders message text with its bold runs emphasised.
func (r *Renderer) Text(text string) string {
	var b strings.Builder
	for _, seg := range chat.Segments(text) {
		if seg.Bold {
			b.WriteString(r.styles.Bold.Render(seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Notification renders the transient progress line.
func (r *Renderer) Notification(text string) string {
	return r.styles.Notification.Render("… " + text)
}

func (r *Renderer) senderLabel(sender chat.Sender) string {
	switch sender {
	case chat.SenderUser:
		return r.styles.User.Render("You:")
	case chat.SenderSystem:
		return r.styles.System.Render("System:")
	default:
		return r.styles.Bot.Render("DigiBook Bot:")
	}
}
