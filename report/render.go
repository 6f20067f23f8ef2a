package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/brettboylen/thread-analyzer/models"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const (
	maxBarWidth    = 40
	previewColumns = 80
)

// Renderer writes an AnalysisResult for humans or machines
type Renderer struct {
	// Now anchors relative timestamps ("3 hours ago")
	Now func() time.Time
}

// NewRenderer creates a renderer using the wall clock
func NewRenderer() *Renderer {
	return &Renderer{Now: time.Now}
}

// Render writes result in the given format
func (r *Renderer) Render(w io.Writer, result *models.AnalysisResult, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatTable, "":
		_, err := io.WriteString(w, r.Table(result))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatTable, FormatJSON)
	}
}

// Table renders every section of the analysis as text tables
func (r *Renderer) Table(result *models.AnalysisResult) string {
	sections := []string{
		r.summary(result),
		r.authors(result.AuthorStats),
		r.comments(result.TopComments),
		r.hours(result.TimeDistribution),
		r.words(result.WordFrequency),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle("%s", title)
	tw.SetStyle(table.StyleLight)
	return tw
}

func (r *Renderer) summary(result *models.AnalysisResult) string {
	tw := newTable(result.PostTitle)
	tw.AppendRows([]table.Row{
		{"Post", result.PostID},
		{"Post score", humanize.Comma(int64(result.TotalScore))},
		{"Upvote ratio", fmt.Sprintf("%.0f%%", result.UpvoteRatio*100)},
		{"Comments", humanize.Comma(int64(result.TotalComments))},
		{"Unique authors", humanize.Comma(int64(result.AuthorStats.UniqueAuthors))},
		{"Comment score (total)", humanize.Comma(int64(result.CommentStats.TotalScore))},
		{"Comment score (avg)", humanize.FormatFloat("#,###.##", result.CommentStats.AvgScore)},
		{"Comment score (max / min)", fmt.Sprintf("%s / %s",
			humanize.Comma(int64(result.CommentStats.MaxScore)),
			humanize.Comma(int64(result.CommentStats.MinScore)))},
	})
	return tw.Render()
}

func (r *Renderer) authors(stats models.AuthorStats) string {
	tw := newTable("Top authors")
	tw.AppendHeader(table.Row{"#", "Author", "Comments", "Total score", "Avg score"})
	for i, a := range stats.TopAuthors {
		tw.AppendRow(table.Row{
			i + 1,
			a.Author,
			a.CommentCount,
			humanize.Comma(int64(a.TotalScore)),
			humanize.FormatFloat("#,###.##", a.AvgScore),
		})
	}
	return tw.Render()
}

func (r *Renderer) comments(top []models.TopComment) string {
	now := r.Now()

	tw := newTable("Top comments")
	tw.AppendHeader(table.Row{"Score", "Author", "Posted", "Comment"})
	for _, c := range top {
		tw.AppendRow(table.Row{
			humanize.Comma(int64(c.Score)),
			c.Author,
			humanize.RelTime(c.CreatedAt, now, "ago", "from now"),
			preview(c.Body),
		})
	}
	return tw.Render()
}

func (r *Renderer) hours(distribution map[int]int) string {
	hours := make([]int, 0, len(distribution))
	peak := 0
	for hour, count := range distribution {
		hours = append(hours, hour)
		if count > peak {
			peak = count
		}
	}
	sort.Ints(hours)

	tw := newTable("Comments by hour (UTC)")
	tw.AppendHeader(table.Row{"Hour", "Comments", ""})
	for _, hour := range hours {
		count := distribution[hour]
		tw.AppendRow(table.Row{fmt.Sprintf("%02d:00", hour), count, bar(count, peak)})
	}
	return tw.Render()
}

func (r *Renderer) words(words []models.WordCount) string {
	tw := newTable("Frequent words")
	tw.AppendHeader(table.Row{"#", "Word", "Count"})
	for i, w := range words {
		tw.AppendRow(table.Row{i + 1, w.Word, w.Count})
	}
	return tw.Render()
}

func bar(count, peak int) string {
	if peak == 0 {
		return ""
	}
	width := count * maxBarWidth / peak
	if width == 0 && count > 0 {
		width = 1
	}
	return strings.Repeat("█", width)
}

// preview flattens a comment body onto one line for the table
func preview(body string) string {
	line := strings.Join(strings.Fields(body), " ")
	runes := []rune(line)
	if len(runes) > previewColumns {
		return string(runes[:previewColumns-1]) + "…"
	}
	return line
}
