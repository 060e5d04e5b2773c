package transcript

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	userLabel = "你"
	barWidth  = 20
)

type View struct {
	Persona domain.Persona
	Bursts  []domain.Burst
}

type RenderOptions struct {
	Now      time.Time
	Location *time.Location
}

// RosterEntry is one persona line of the roster view. Members is set for
// group personas only.
type RosterEntry struct {
	Persona    domain.Persona
	Attributes domain.PersonaAttributes
	Members    []string
	Messages   int
}

func renderTranscript(view View, opts RenderOptions, s styles) string {
	messages := 0
	for _, burst := range view.Bursts {
		messages += len(burst.Utterances)
	}

	lines := []string{
		s.title.Render(personaTitle(view.Persona)),
		s.header.Render(fmt.Sprintf("messages: %d", messages)),
	}
	if len(view.Bursts) == 0 {
		lines = append(lines, s.empty.Render("No messages yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, burst := range view.Bursts {
		lines = append(lines, s.section.Render(renderBurst(burst, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBurst(burst domain.Burst, opts RenderOptions, s styles) string {
	parts := []string{s.burst.Render("-- " + formatBurstStart(localTime(burst.Start, opts), opts.Now) + " --")}
	for _, utterance := range burst.Utterances {
		parts = append(parts, renderLine(domain.Delivery{Utterance: utterance}, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// RenderDelivery formats a single delivery for live output.
func RenderDelivery(delivery domain.Delivery, opts RenderOptions) string {
	return renderLine(delivery, opts, newStyles())
}

func renderLine(delivery domain.Delivery, opts RenderOptions, s styles) string {
	utterance := delivery.Utterance
	stamp := s.timestamp.Render(localTime(utterance.Timestamp, opts).Format("15:04:05"))

	var speaker, content string
	switch {
	case delivery.Fallback:
		speaker = s.fallback.Render("!")
		content = s.fallback.Render(utterance.Content)
	case utterance.FromUser():
		speaker = s.user.Render(userLabel + ":")
		content = s.content.Render(utterance.Content)
	case utterance.Speaker == domain.SpeakerAssistant || utterance.Speaker == "":
		speaker = s.narration.Render("*")
		content = s.narration.Render(utterance.Content)
	default:
		speaker = s.speaker.Render(utterance.Speaker + ":")
		content = s.content.Render(utterance.Content)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, stamp, " ", speaker, " ", content)
}

func renderRoster(entries []RosterEntry, s styles) string {
	lines := []string{
		s.title.Render("Personas"),
		s.header.Render(fmt.Sprintf("personas: %d", len(entries))),
	}
	if len(entries) == 0 {
		lines = append(lines, s.empty.Render("No personas configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range entries {
		lines = append(lines, s.section.Render(renderRosterEntry(entry, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRosterEntry(entry RosterEntry, s styles) string {
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		s.avatar.Render(avatarGlyph(entry.Persona)),
		" ",
		s.speaker.Render(personaTitle(entry.Persona)),
	)
	parts := []string{title}
	if status := strings.TrimSpace(entry.Persona.StatusText); status != "" {
		parts = append(parts, s.status.Render(status))
	}

	if entry.Persona.IsGroup() {
		parts = append(parts, s.attrKey.Render("members: "+strings.Join(entry.Members, ", ")))
	} else {
		parts = append(parts,
			attributeLine("talkativeness", entry.Attributes.Talkativeness, s),
			attributeLine("reply rate", entry.Attributes.ReplyRate, s),
		)
	}
	parts = append(parts, s.header.Render(fmt.Sprintf("messages: %d", entry.Messages)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func attributeLine(label string, value float64, s styles) string {
	valueStyle := lipgloss.NewStyle().Foreground(interpolateColor(value, 0, 1))
	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.attrKey.Render(fmt.Sprintf("%-13s", label)),
		" ",
		renderBar(value, barWidth, s),
		" ",
		valueStyle.Render(fmt.Sprintf("%.2f", value)),
	)
}

func renderBar(fraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * min(max(fraction, 0), 1)))
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", width-filled))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func personaTitle(persona domain.Persona) string {
	name := strings.TrimSpace(persona.DisplayName)
	if name == "" {
		return string(persona.ID)
	}
	return fmt.Sprintf("%s (%s)", name, persona.ID)
}

func avatarGlyph(persona domain.Persona) string {
	if glyph := strings.TrimSpace(persona.AvatarGlyph); glyph != "" {
		return glyph
	}
	for _, r := range persona.DisplayName {
		return string(r)
	}
	return "?"
}

func localTime(ms int64, opts RenderOptions) time.Time {
	t := time.UnixMilli(ms)
	if opts.Location != nil {
		return t.In(opts.Location)
	}
	return t
}

func formatBurstStart(start, now time.Time) string {
	if now.IsZero() {
		return start.Format("2006-01-02 15:04")
	}

	now = now.In(start.Location())
	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := start.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return start.Format("15:04")
	}

	return start.Format("15:04 on 02 Jan")
}

func interpolateColor(value, lo, hi float64) lipgloss.Color {
	if hi == lo {
		return lipgloss.Color("255")
	}

	normalized := min(max((value-lo)/(hi-lo), 0), 1)

	// ANSI 256 greyscale ramp from 240 (faded) to 255 (bright).
	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
