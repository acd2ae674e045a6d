// Package output renders trends and stats as terminal tables.
package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Table buffers rows and renders them with the default styling.
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a table that writes to w.
func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	return &Table{table: table, header: headers}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Len returns the number of buffered rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table.
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return fmt.Errorf("render rows: %w", err)
	}
	return t.table.Render()
}

const timeFormat = "2006-01-02 15:04"

// Trends renders trends one per row.
func Trends(w io.Writer, trends []*db.Trend) error {
	t := NewTable(w, []string{"ID", "Name", "Category", "Posts", "Trending Since", "Notified", "Created"})
	for _, trend := range trends {
		t.AddRow(
			strconv.FormatInt(trend.ID, 10),
			trend.Name,
			trend.Category,
			trend.PostCount,
			trend.TrendingSince,
			yesNo(trend.Notified),
			trend.CreatedAt.Local().Format(timeFormat),
		)
	}
	return t.Render()
}

// Categories renders per-category counts.
func Categories(w io.Writer, counts []db.CategoryCount) error {
	t := NewTable(w, []string{"Category", "Trends"})
	for _, c := range counts {
		name := c.Category
		if name == "" {
			name = "(none)"
		}
		t.AddRow(name, strconv.FormatInt(c.Count, 10))
	}
	return t.Render()
}

// IngestRun renders the outcome of one ingest run as key/value rows.
func IngestRun(w io.Writer, run *db.IngestRun) error {
	t := NewTable(w, []string{"Field", "Value"})
	t.AddRow("Run", run.ID)
	t.AddRow("Started", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt.Valid {
		t.AddRow("Duration", run.FinishedAt.Time.Sub(run.StartedAt).String())
	} else {
		t.AddRow("Duration", "running")
	}
	t.AddRow("Fetched", strconv.FormatInt(run.Fetched, 10))
	t.AddRow("New", strconv.FormatInt(run.NewCount, 10))
	t.AddRow("Updated", strconv.FormatInt(run.UpdatedCount, 10))
	t.AddRow("Fuzzy", strconv.FormatInt(run.FuzzyCount, 10))
	t.AddRow("Rate Limited", yesNo(run.RateLimited))
	if run.Error.Valid {
		t.AddRow("Error", run.Error.String)
	}
	return t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
