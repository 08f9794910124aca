// Package display renders the command-line output of a run.
package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"mbart/internal/artwork"
	"mbart/internal/downloader"
	"mbart/internal/release"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	rankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statusWidth = lipgloss.NewStyle().Width(9)
)

// CandidateLine renders one entry of the selection list. It satisfies
// selector.FormatFunc.
func CandidateLine(rank int, c release.Candidate) string {
	return fmt.Sprintf("%s %s - %s %s",
		rankStyle.Render(fmt.Sprintf("[%d]", rank)),
		c.ArtistLine(),
		titleStyle.Render(c.Title),
		dimStyle.Render(fmt.Sprintf("(%d %s)", c.ReleaseCount, c.TypeLine())),
	)
}

// SearchLine reports how many of the total matches are shown.
func SearchLine(total, shown int) string {
	return fmt.Sprintf("%d of %d release-groups", shown, total)
}

// SelectedLine announces the chosen release-group and its folder.
func SelectedLine(c release.Candidate, dir string) string {
	return fmt.Sprintf("%s %s %s",
		titleStyle.Render(c.Title),
		dimStyle.Render("->"),
		dir,
	)
}

// ReleaseLine renders the outcome of resolving one release.
func ReleaseLine(s artwork.ReleaseStatus) string {
	head := fmt.Sprintf("%02d [%s] %s [%s]", s.Sequence, s.Release.CountryOrUnknown(), s.Release.ID, s.Release.DateOrUnknown())
	switch s.State {
	case artwork.StateNoImages:
		return head + " " + warningStyle.Render(s.Summary())
	case artwork.StateError:
		return head + " " + errorStyle.Render(s.Summary())
	}
	return head + " " + dimStyle.Render(s.Summary())
}

// ReportLine renders the outcome of one download attempt.
func ReportLine(r downloader.Report) string {
	line := fmt.Sprintf("%s %s [%s] %s",
		statusStyle(r.Status).Render(string(r.Status)),
		r.Target.Path,
		r.Target.Image.TypeLine(),
		r.HumanSize(),
	)
	if r.Reason != "" {
		line += " " + dimStyle.Render("("+r.Reason+")")
	}
	if r.Err != nil {
		line += " " + errorStyle.Render(r.Err.Error())
	}
	return line
}

func statusStyle(s downloader.Status) lipgloss.Style {
	switch s {
	case downloader.StatusDone:
		return statusWidth.Inherit(successStyle)
	case downloader.StatusSkipped:
		return statusWidth.Inherit(dimStyle)
	case downloader.StatusRejected:
		return statusWidth.Inherit(warningStyle)
	}
	return statusWidth.Inherit(errorStyle)
}

// Summary renders the final counts of a run.
func Summary(s downloader.Stats) string {
	return fmt.Sprintf("%s, %s, %s, %s",
		successStyle.Render(fmt.Sprintf("%d done", s.Done)),
		dimStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)),
		warningStyle.Render(fmt.Sprintf("%d rejected", s.Rejected)),
		errorStyle.Render(fmt.Sprintf("%d failed", s.Failed)),
	)
}
