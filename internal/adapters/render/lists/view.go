package lists

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jfcl7/jcblock/internal/domain"
)

const barWidth = 24

type RenderOptions struct {
	Now time.Time
	// Lifetime enables the purge age bar. Zero hides it.
	Lifetime time.Duration
}

func renderList(list *domain.PatternList, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("%s list", list.Kind)),
		s.header.Render(fmt.Sprintf("entries: %d", list.Len())),
	}

	if list.Len() == 0 {
		lines = append(lines, s.empty.Render("No entries."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range list.Entries() {
		lines = append(lines, renderEntry(entry, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEntry(entry *domain.PatternEntry, opts RenderOptions, s styles) string {
	title := s.pattern.Render(entry.Pattern)
	if entry.Permanent {
		title += " " + s.permanent.Render("[permanent]")
	}
	if entry.Note != "" {
		title += " " + s.detail.Render(entry.Note)
	}

	history := s.detail.Render(fmt.Sprintf("  matched %d %s, last %s",
		entry.MatchCount, plural(entry.MatchCount, "time", "times"), entry.LastMatched))

	parts := []string{title, history}
	if opts.Lifetime > 0 && !entry.Permanent {
		parts = append(parts, "  "+ageLine(entry, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func ageLine(entry *domain.PatternEntry, opts RenderOptions, s styles) string {
	last, err := entry.LastMatched.Time(opts.Now.Location())
	if err != nil {
		return s.warning.Render("[unreadable timestamp]")
	}

	remaining := opts.Lifetime - opts.Now.Sub(last)
	leftPercent := clampPercent(100 * float64(remaining) / float64(opts.Lifetime))
	bar := renderProgressBar(leftPercent, barWidth, s)

	if remaining <= 0 {
		return bar + " " + s.warning.Render("[due for purge]")
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	return bar + " " + s.detail.Render(fmt.Sprintf("purged in %d %s", days, plural(days, "day", "days")))
}

func renderCallers(callers []domain.CallerCount, days int, s styles) string {
	lines := []string{
		s.title.Render("Frequent unlisted callers"),
		s.header.Render(fmt.Sprintf("last %d %s", days, plural(days, "day", "days"))),
	}

	if len(callers) == 0 {
		lines = append(lines, s.empty.Render("No unlisted callers."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, caller := range callers {
		lines = append(lines, fmt.Sprintf("%s %s",
			s.pattern.Render(fmt.Sprintf("%-12s", caller.Number)),
			s.detail.Render(fmt.Sprintf("%d %s", caller.Count, plural(caller.Count, "call", "calls")))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100))
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
