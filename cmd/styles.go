package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wanderlust/internal/domain"
)

type styles struct {
	speaker lipgloss.Style
	user    lipgloss.Style
	offer   lipgloss.Style
	hint    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles() styles {
	return styles{
		speaker: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		user:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		offer:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		hint:    lipgloss.NewStyle().Faint(true),
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (s styles) message(index int, msg domain.Message) string {
	if msg.Role == domain.RoleUser {
		return s.user.Render("you: " + msg.Text)
	}
	var b strings.Builder
	b.WriteString(s.speaker.Render("assistant:"))
	b.WriteString(" ")
	b.WriteString(msg.Text)
	if msg.HasOffer() {
		b.WriteString("\n  ")
		b.WriteString(s.offerLine(index, msg))
	}
	return b.String()
}

func (s styles) offerLine(index int, msg domain.Message) string {
	o := msg.Offer
	target := o.DestinationLabel
	if target == "" {
		target = "trip"
	}
	line := s.offer.Render(fmt.Sprintf("[#%d] %s: flight %s, hotel %s, $%.2f", index, target, o.FlightRef, o.HotelRef, o.Amount))
	switch msg.Outcome {
	case domain.OutcomeSuccess:
		return line + " " + s.success.Render("booked")
	case domain.OutcomeError:
		return line + " " + s.failure.Render("failed") + " " + s.hint.Render(fmt.Sprintf("(/book %d to retry)", index))
	default:
		return line + " " + s.hint.Render(fmt.Sprintf("(/book %d)", index))
	}
}

func (s styles) notification(pos int, n domain.Notification) string {
	var tag lipgloss.Style
	switch n.Severity {
	case domain.SeveritySuccess:
		tag = s.success
	case domain.SeverityError:
		tag = s.failure
	default:
		tag = s.info
	}
	return fmt.Sprintf("%s %s %s", s.muted.Render(fmt.Sprintf("(%d)", pos)), tag.Render(n.Title), n.Body)
}

func (s styles) stage(stage domain.SagaStage) string {
	switch stage {
	case domain.StageComplete:
		return s.success.Render(stage.Label())
	case domain.StageFailed:
		return s.failure.Render(stage.Label())
	default:
		return s.info.Render(stage.Label())
	}
}
