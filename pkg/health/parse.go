package health

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/vjranagit/healthdash/pkg/types"
)

const recordElement = "Record"

// ParseDocument reads the export and returns the root's Record children in
// document order. When keep is non-nil only records whose type it accepts are
// returned; Index still counts every Record so errors point at the source.
// Nested elements are skipped without being decoded. Encodings other than
// UTF-8 are honoured when the XML declaration names them.
func ParseDocument(r io.Reader, keep func(recordType string) bool) ([]types.RawRecord, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	if err := findRoot(dec); err != nil {
		return nil, err
	}

	var records []types.RawRecord
	index := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &MalformedDocumentError{Err: errors.New("unexpected end of document")}
			}
			return nil, &MalformedDocumentError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != recordElement {
				if err := dec.Skip(); err != nil {
					return nil, &MalformedDocumentError{Err: err}
				}
				continue
			}

			line, _ := dec.InputPos()
			rec := recordFromElement(t)
			rec.Index = index
			rec.Line = line
			index++

			if err := dec.Skip(); err != nil {
				return nil, &MalformedDocumentError{Err: err}
			}
			if keep == nil || keep(rec.Type) {
				records = append(records, rec)
			}
		case xml.EndElement:
			// root closed
			if err := expectEnd(dec); err != nil {
				return nil, err
			}
			return records, nil
		}
	}
}

// expectEnd consumes the document after the root element. Only whitespace,
// comments and processing instructions may follow it.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &MalformedDocumentError{Err: err}
		}

		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) != 0 {
				return &MalformedDocumentError{Err: errors.New("junk after document element")}
			}
		default:
			return &MalformedDocumentError{Err: errors.New("junk after document element")}
		}
	}
}

// findRoot advances the decoder past the root start element
func findRoot(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &MalformedDocumentError{Err: errors.New("document has no root element")}
			}
			return &MalformedDocumentError{Err: err}
		}
		if _, ok := tok.(xml.StartElement); ok {
			return nil
		}
	}
}

func recordFromElement(el xml.StartElement) types.RawRecord {
	var rec types.RawRecord
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "type":
			rec.Type = attr.Value
		case "startDate":
			rec.StartDate = attr.Value
			rec.HasStartDate = true
		case "value":
			rec.Value = attr.Value
			rec.HasValue = true
		}
	}
	return rec
}

// Layouts accepted for startDate. Exports use the first one.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses a startDate as a naive wall-clock timestamp.
// Any UTC offset in the string is dropped and the wall clock is kept as
// written, so the calendar date is the one the device recorded. The result
// is expressed in UTC, which here only serves as a zone-free container.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// ParseValue parses a record value as a finite float64
func ParseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return v, nil
}
