package health

import (
	"fmt"
)

// SourceNotFoundError is returned when the export path does not exist
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("export file not found: %s", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// MalformedDocumentError is returned when the input is not a usable XML document
type MalformedDocumentError struct {
	Source string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("malformed health export: %v", e.Err)
	}
	return fmt.Sprintf("malformed health export %s: %v", e.Source, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// MalformedRecordError identifies a selected Record whose startDate or value
// is missing or cannot be parsed
type MalformedRecordError struct {
	Index int
	Line  int
	Type  string
	Field string
	Raw   string
	// Missing is set when the attribute is absent rather than unparseable
	Missing bool
	Err     error
}

func (e *MalformedRecordError) Error() string {
	loc := fmt.Sprintf("record %d", e.Index)
	if e.Line > 0 {
		loc = fmt.Sprintf("%s (line %d)", loc, e.Line)
	}
	if e.Missing {
		return fmt.Sprintf("%s of type %s: missing %s", loc, e.Type, e.Field)
	}
	return fmt.Sprintf("%s of type %s: invalid %s %q: %v", loc, e.Type, e.Field, e.Raw, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
