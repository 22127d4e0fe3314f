// Package render turns dashboards into the tables a presentation sink shows:
// aligned text for terminals and a JSON view for chart front ends.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/vjranagit/healthdash/pkg/types"
)

// DateLayout formats calendar dates in every output
const DateLayout = "2006-01-02"

// RowView is one table row in JSON output
type RowView struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TableView is the JSON form of a table
type TableView struct {
	Title   string    `json:"title"`
	Columns []string  `json:"columns"`
	Rows    []RowView `json:"rows"`
	Notice  string    `json:"notice,omitempty"`
}

// DashboardView is the JSON form of a dashboard
type DashboardView struct {
	Steps     TableView `json:"steps"`
	HeartRate TableView `json:"heart_rate"`
}

// NewTableView converts a table for JSON output
func NewTableView(t types.Table) TableView {
	rows := make([]RowView, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = RowView{Date: r.Date.Format(DateLayout), Value: r.Value}
	}
	return TableView{
		Title:   t.Title,
		Columns: []string{t.DateColumn, t.ValueColumn},
		Rows:    rows,
		Notice:  t.Notice(),
	}
}

// NewDashboardView converts a dashboard for JSON output
func NewDashboardView(d *types.Dashboard) DashboardView {
	return DashboardView{
		Steps:     NewTableView(d.Steps),
		HeartRate: NewTableView(d.HeartRate),
	}
}

// JSON writes the dashboard as indented JSON
func JSON(w io.Writer, d *types.Dashboard) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDashboardView(d))
}

// Text writes both tables as aligned columns. An empty table prints its
// notice instead of a header.
func Text(w io.Writer, d *types.Dashboard) error {
	if err := writeTable(w, d.Steps); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeTable(w, d.HeartRate)
}

func writeTable(w io.Writer, t types.Table) error {
	if _, err := fmt.Fprintf(w, "%s\n", t.Title); err != nil {
		return err
	}
	if t.Empty() {
		_, err := fmt.Fprintf(w, "  %s\n", t.Notice())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\t\n", t.DateColumn, t.ValueColumn)
	for _, row := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", row.Date.Format(DateLayout), formatValue(row.Value))
	}
	return tw.Flush()
}

// formatValue rounds to two decimals for display and drops trailing zeros
func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
