package health

import (
	"fmt"
	"strings"

	"github.com/vjranagit/healthdash/pkg/types"
)

// RecordPolicy decides what happens to a selected record with a missing or
// unparseable startDate or value. It applies identically to both fields.
type RecordPolicy int

const (
	// Abort fails the whole extraction on the first malformed record
	Abort RecordPolicy = iota
	// Skip drops malformed records and reports them in Extraction.Skipped
	Skip
)

func (p RecordPolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("RecordPolicy(%d)", int(p))
	}
}

// ParseRecordPolicy maps a config value to a RecordPolicy
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	default:
		return Abort, fmt.Errorf("unknown record policy %q (want abort or skip)", s)
	}
}

// Extraction holds the samples selected from one document
type Extraction struct {
	Steps      []types.Sample
	HeartRates []types.Sample

	// Skipped lists records dropped under the Skip policy
	Skipped []*MalformedRecordError
}

// IsTracked reports whether a record type feeds one of the dashboard tables
func IsTracked(recordType string) bool {
	return recordType == types.StepCount || recordType == types.HeartRate
}

// Extract selects step-count and heart-rate records and parses them into
// samples, preserving document order. Records of other types are ignored.
func Extract(records []types.RawRecord, policy RecordPolicy) (*Extraction, error) {
	ext := &Extraction{
		Steps:      []types.Sample{},
		HeartRates: []types.Sample{},
	}

	for i := range records {
		rec := &records[i]
		if !IsTracked(rec.Type) {
			continue
		}

		sample, recErr := toSample(rec)
		if recErr != nil {
			if policy == Skip {
				ext.Skipped = append(ext.Skipped, recErr)
				continue
			}
			return nil, recErr
		}

		switch rec.Type {
		case types.StepCount:
			ext.Steps = append(ext.Steps, sample)
		case types.HeartRate:
			ext.HeartRates = append(ext.HeartRates, sample)
		}
	}

	return ext, nil
}

func toSample(rec *types.RawRecord) (types.Sample, *MalformedRecordError) {
	fail := func(field, raw string, missing bool, err error) *MalformedRecordError {
		return &MalformedRecordError{
			Index:   rec.Index,
			Line:    rec.Line,
			Type:    rec.Type,
			Field:   field,
			Raw:     raw,
			Missing: missing,
			Err:     err,
		}
	}

	if !rec.HasStartDate {
		return types.Sample{}, fail("startDate", "", true, nil)
	}
	ts, err := ParseTimestamp(rec.StartDate)
	if err != nil {
		return types.Sample{}, fail("startDate", rec.StartDate, false, err)
	}

	if !rec.HasValue {
		return types.Sample{}, fail("value", "", true, nil)
	}
	v, err := ParseValue(rec.Value)
	if err != nil {
		return types.Sample{}, fail("value", rec.Value, false, err)
	}

	return types.Sample{Timestamp: ts, Value: v}, nil
}
