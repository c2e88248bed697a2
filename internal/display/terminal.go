// Package display provides terminal and Markdown output for moltwatch.
package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gauthierbraillon/moltwatch/internal/aggregator"
	"github.com/gauthierbraillon/moltwatch/internal/snapshot"
)

const (
	bullet        = "  • "
	titleMaxWidth = 60
)

// TerminalFormatter formats run summaries for terminal display.
type TerminalFormatter struct {
	colors bool
}

// NewTerminalFormatter creates a new terminal formatter. When colors is false
// the output is plain text regardless of the terminal.
func NewTerminalFormatter(colors bool) *TerminalFormatter {
	return &TerminalFormatter{colors: colors}
}

func (f *TerminalFormatter) paint(text string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if f.colors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

// FormatCollectionSummary formats the result of a daily collection.
func (f *TerminalFormatter) FormatCollectionSummary(snap *snapshot.DailySnapshot, path string) string {
	var lines []string

	lines = append(lines, f.paint("✓ Collection complete", color.FgGreen, color.Bold))
	lines = append(lines, fmt.Sprintf("Date: %s (run %s)", snap.Metadata.Date, snap.Metadata.RunID))
	lines = append(lines, "")
	lines = append(lines, "Summary:")

	hot := 0
	for _, p := range snap.Channels.Hot {
		hot += p.Count
	}
	act := snap.Activity
	lines = append(lines,
		bullet+fmt.Sprintf("Hot posts collected: %d", hot),
		bullet+fmt.Sprintf("New posts collected: %d", act.NewPosts.Total),
		bullet+fmt.Sprintf("Unique authors: %d", act.Authors.UniqueCount),
		bullet+fmt.Sprintf("Total comments: %d", act.Engagement.TotalComments),
		bullet+fmt.Sprintf("Total votes: %d", act.Engagement.TotalVotes),
		bullet+fmt.Sprintf("Top trend: %s", firstTerm(snap)),
	)
	if len(snap.Trending) > 0 {
		top := snap.Trending[0]
		lines = append(lines, bullet+fmt.Sprintf("Top post: %s (%d upvotes)",
			f.TruncateText(orDefault(singleLine(top.Title), placeholderUntitled), titleMaxWidth), top.Upvotes))
	}

	if failed := failedPulls(snap); len(failed) > 0 {
		lines = append(lines, "")
		lines = append(lines, f.paint(fmt.Sprintf("⚠ %d pull(s) failed:", len(failed)), color.FgYellow))
		for _, msg := range failed {
			lines = append(lines, bullet+msg)
		}
	}

	if path != "" {
		lines = append(lines, "")
		lines = append(lines, "Saved to: "+f.paint(path, color.FgCyan))
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatReportSummary formats the result of a weekly aggregation.
func (f *TerminalFormatter) FormatReportSummary(r *aggregator.WeeklyReport, path string) string {
	var lines []string

	lines = append(lines, f.paint("✓ Weekly report generated", color.FgGreen, color.Bold))
	lines = append(lines, fmt.Sprintf("Week: %s to %s", r.WindowStart, r.WindowEnd))
	lines = append(lines, "")

	contributor := "N/A (0 posts)"
	if len(r.TopContributors) > 0 {
		top := r.TopContributors[0]
		contributor = fmt.Sprintf("%s (%d posts)", orDefault(top.Name, placeholderUnknown), top.Count)
	}
	term := "N/A"
	if len(r.TopTerms) > 0 {
		term = r.TopTerms[0].Term
	}
	lines = append(lines,
		bullet+fmt.Sprintf("Days analyzed: %d of %d", r.DaysAnalyzed, r.DaysRequested),
		bullet+fmt.Sprintf("Total posts: %d", r.TotalPosts),
		bullet+fmt.Sprintf("Unique authors: %d", r.UniqueAuthors),
		bullet+"Top contributor: "+contributor,
		bullet+"Top trend: "+term,
	)
	if len(r.SkippedDates) > 0 {
		lines = append(lines, f.paint("⚠ Missing days: "+strings.Join(r.SkippedDates, ", "), color.FgYellow))
	}
	if path != "" {
		lines = append(lines, "")
		lines = append(lines, "Saved to: "+f.paint(path, color.FgCyan))
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatSnapshotList formats the stored snapshot dates, oldest first.
func (f *TerminalFormatter) FormatSnapshotList(dates []string) string {
	if len(dates) == 0 {
		return "No snapshots stored.\n"
	}
	var b strings.Builder
	for _, d := range dates {
		b.WriteString(d + "\n")
	}
	fmt.Fprintf(&b, "%s\n", f.paint(fmt.Sprintf("%d snapshot(s)", len(dates)), color.Faint))
	return b.String()
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

func firstTerm(snap *snapshot.DailySnapshot) string {
	if len(snap.Trends.SearchTerms) == 0 {
		return "N/A"
	}
	return snap.Trends.SearchTerms[0].Term
}

func failedPulls(snap *snapshot.DailySnapshot) []string {
	var out []string
	label := func(p snapshot.FeedPull) string {
		if p.Channel == "" {
			return "global/" + p.Sort
		}
		return p.Channel + "/" + p.Sort
	}
	if snap.Channels.GlobalNew.Failed() {
		out = append(out, label(snap.Channels.GlobalNew)+": "+snap.Channels.GlobalNew.Error)
	}
	for _, group := range [][]snapshot.FeedPull{snap.Channels.Hot, snap.Channels.New} {
		for _, p := range group {
			if p.Failed() {
				out = append(out, label(p)+": "+p.Error)
			}
		}
	}
	for _, info := range snap.Channels.Info {
		if info.Error != "" {
			out = append(out, info.Name+"/info: "+info.Error)
		}
	}
	return out
}
