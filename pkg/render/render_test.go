package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/healthdash/pkg/types"
)

func sampleDashboard() *types.Dashboard {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &types.Dashboard{
		Steps: types.Table{
			Title:       "Daily Step Count",
			DateColumn:  "Date",
			ValueColumn: "Steps",
			Rows: []types.DailyAggregate{
				{Date: d1, Value: 150},
				{Date: d1.AddDate(0, 0, 1), Value: 12345},
			},
		},
		HeartRate: types.Table{
			Title:       "Average Heart Rate",
			DateColumn:  "Date",
			ValueColumn: "Avg Heart Rate",
			Rows:        []types.DailyAggregate{},
		},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleDashboard()))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "Daily Step Count", lines[0])
	assert.Contains(t, lines[1], "Date")
	assert.Contains(t, lines[1], "Steps")
	assert.Contains(t, lines[2], "2024-01-01")
	assert.Contains(t, lines[2], "150")
	assert.Contains(t, lines[3], "12345")
	assert.Contains(t, out, "Average Heart Rate\n  No records found for Average Heart Rate.")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleDashboard()))

	var view DashboardView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))

	assert.Equal(t, []string{"Date", "Steps"}, view.Steps.Columns)
	assert.Equal(t, []RowView{{Date: "2024-01-01", Value: 150}, {Date: "2024-01-02", Value: 12345}}, view.Steps.Rows)
	assert.Empty(t, view.Steps.Notice)

	assert.Equal(t, []string{"Date", "Avg Heart Rate"}, view.HeartRate.Columns)
	assert.NotNil(t, view.HeartRate.Rows)
	assert.Empty(t, view.HeartRate.Rows)
	assert.Equal(t, "No records found for Average Heart Rate.", view.HeartRate.Notice)

	// Empty tables serialize rows as [] rather than null
	assert.Contains(t, buf.String(), `"rows": []`)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "150", formatValue(150))
	assert.Equal(t, "72.33", formatValue(72.333333))
	assert.Equal(t, "70.5", formatValue(70.5))
	assert.Equal(t, "0", formatValue(0))
}
