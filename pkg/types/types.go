package types

import "time"

// Record type identifiers used by the health export
const (
	StepCount = "HKQuantityTypeIdentifierStepCount"
	HeartRate = "HKQuantityTypeIdentifierHeartRate"
)

// RawRecord is a single Record element as it appears in the export.
// It only lives for the duration of one parse pass.
type RawRecord struct {
	Type      string
	StartDate string
	Value     string

	// HasStartDate and HasValue distinguish an absent attribute from an empty one
	HasStartDate bool
	HasValue     bool

	// Index is the ordinal of the element among the root's Record children
	Index int
	// Line is the 1-based line on which the element's start tag ends, 0 when unknown
	Line int
}

// Sample represents a single timestamped observation
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// DailyAggregate is the reduction of all samples sharing a calendar date.
// Date is midnight of that date in UTC and carries no zone meaning.
type DailyAggregate struct {
	Date  time.Time
	Value float64
}

// Reduction selects how samples of one day are combined
type Reduction int

const (
	Sum Reduction = iota
	Mean
)

func (r Reduction) String() string {
	switch r {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	default:
		return "unknown"
	}
}

// Table is an ordered date → value table handed to a presentation sink
type Table struct {
	Title       string
	DateColumn  string
	ValueColumn string
	Rows        []DailyAggregate
}

// Empty reports whether the table has no rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Notice returns an informational message for an empty table, or "" when
// the table has rows. An empty table is not an error.
func (t Table) Notice() string {
	if !t.Empty() {
		return ""
	}
	return "No records found for " + t.Title + "."
}

// Dashboard holds the two daily tables
type Dashboard struct {
	Steps     Table
	HeartRate Table
}
