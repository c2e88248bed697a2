package display

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/gauthierbraillon/moltwatch/internal/aggregator"
)

const (
	placeholderNA       = "n/a"
	placeholderUnknown  = "Unknown"
	placeholderUntitled = "(untitled)"
	sectionRule         = "\n---\n\n"
)

// RenderOptions controls the parts of the report that do not come from data.
type RenderOptions struct {
	Agent  string
	Footer string
}

// RenderMarkdown renders a weekly report as a Markdown document. It does no
// I/O; the caller decides where the bytes go.
func RenderMarkdown(r *aggregator.WeeklyReport, opts RenderOptions) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString("# Moltbook Weekly Report\n\n")
	fmt.Fprintf(&b, "**Week:** %s to %s  \n", r.WindowStart, r.WindowEnd)
	fmt.Fprintf(&b, "**Generated:** %s  \n", r.GeneratedAt.UTC().Format(time.RFC3339))
	if opts.Agent != "" {
		fmt.Fprintf(&b, "**Agent:** %s  \n", opts.Agent)
	}
	b.WriteString(sectionRule)

	sections := []struct {
		title string
		write func(*bytes.Buffer, *aggregator.WeeklyReport) error
	}{
		{"## 📊 Overview", writeOverview},
		{"## 🏆 Most Active Submolts", writeChannels},
		{"## 🔥 Top Trending Posts", writeTrending},
		{"## 👥 Top Contributors", writeContributors},
		{"## 📈 Trending Topics", writeTerms},
		{"## 📝 Daily Breakdown", writeDays},
	}
	for _, s := range sections {
		b.WriteString(s.title + "\n\n")
		if err := s.write(&b, r); err != nil {
			return nil, fmt.Errorf("rendering %q: %w", strings.TrimLeft(s.title, "# "), err)
		}
		b.WriteString(sectionRule)
	}

	if len(r.SkippedDates) > 0 {
		fmt.Fprintf(&b, "_No usable snapshot for: %s_\n\n", strings.Join(r.SkippedDates, ", "))
	}

	footer := opts.Footer
	if footer == "" {
		footer = "Report generated by moltwatch"
	}
	fmt.Fprintf(&b, "*%s*\n", footer)
	return b.Bytes(), nil
}

func writeOverview(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	return writeTable(b, []string{"Metric", "Value"}, [][]string{
		{"Days Analyzed", fmt.Sprintf("%d of %d", r.DaysAnalyzed, r.DaysRequested)},
		{"Total New Posts", strconv.Itoa(r.TotalPosts)},
		{"Total Comments", strconv.FormatInt(r.TotalComments, 10)},
		{"Total Upvotes", strconv.FormatInt(r.TotalUpvotes, 10)},
		{"Unique Authors", strconv.Itoa(r.UniqueAuthors)},
	})
}

func writeChannels(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	rows := make([][]string, 0, len(r.ChannelActivity))
	for _, ch := range r.ChannelActivity {
		rows = append(rows, []string{orDefault(ch.Name, placeholderUnknown), strconv.Itoa(ch.PostCount)})
	}
	return writeTable(b, []string{"Submolt", "Posts"}, rows)
}

// writeTrending itemizes posts rather than tabulating them so long titles
// stay readable.
func writeTrending(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	if len(r.TopTrending) == 0 {
		b.WriteString("_No trending posts in this window._\n")
		return nil
	}
	for i, p := range r.TopTrending {
		fmt.Fprintf(b, "### %d. %s\n", i+1, orDefault(singleLine(p.Title), placeholderUntitled))
		fmt.Fprintf(b, "- **Author:** %s\n", orDefault(p.Author, placeholderUnknown))
		fmt.Fprintf(b, "- **Submolt:** %s\n", orDefault(p.Channel, placeholderUnknown))
		fmt.Fprintf(b, "- **Upvotes:** %d | **Comments:** %d\n\n", p.Upvotes, p.CommentCount)
	}
	return nil
}

func writeContributors(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	rows := make([][]string, 0, len(r.TopContributors))
	for i, a := range r.TopContributors {
		rows = append(rows, []string{strconv.Itoa(i + 1), orDefault(a.Name, placeholderUnknown), strconv.Itoa(a.Count)})
	}
	return writeTable(b, []string{"Rank", "Author", "Posts"}, rows)
}

func writeTerms(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	rows := make([][]string, 0, len(r.TopTerms))
	for _, t := range r.TopTerms {
		rows = append(rows, []string{t.Term, strconv.Itoa(t.Count)})
	}
	return writeTable(b, []string{"Term", "Mentions"}, rows)
}

func writeDays(b *bytes.Buffer, r *aggregator.WeeklyReport) error {
	rows := make([][]string, 0, len(r.Days))
	for _, d := range r.Days {
		rows = append(rows, []string{
			orDefault(d.Date, placeholderNA),
			strconv.Itoa(d.Posts),
			strconv.Itoa(d.Authors),
			strconv.FormatInt(d.Engagement, 10),
		})
	}
	return writeTable(b, []string{"Date", "Posts", "Authors", "Engagement"}, rows)
}

// writeTable renders one Markdown table. An empty table gets a single row of
// placeholders so the section never looks truncated.
func writeTable(b *bytes.Buffer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		empty := make([]string, len(header))
		for i := range empty {
			empty[i] = placeholderNA
		}
		rows = [][]string{empty}
	}
	for _, row := range rows {
		for i := range row {
			row[i] = escapeCell(row[i])
		}
	}

	table := tablewriter.NewTable(b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	b.WriteString("\n")
	return nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
