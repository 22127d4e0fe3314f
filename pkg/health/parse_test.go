package health

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/healthdash/pkg/types"
)

const exportHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE HealthData [
<!ELEMENT HealthData (ExportDate,Me,(Record)*)>
<!ATTLIST HealthData locale CDATA #REQUIRED>
<!ELEMENT Record ((MetadataEntry|HeartRateVariabilityMetadataList)*)>
<!ATTLIST Record type CDATA #REQUIRED value CDATA #IMPLIED>
]>
`

func TestParseDocument(t *testing.T) {
	doc := exportHeader + `<HealthData locale="en_US">
 <ExportDate value="2024-01-03 10:00:00 -0800"/>
 <Me HKCharacteristicTypeIdentifierDateOfBirth=""/>
 <Record type="HKQuantityTypeIdentifierStepCount" startDate="2024-01-01 08:00:00 -0800" value="100">
  <MetadataEntry key="HKMetadataKeySyncVersion" value="2"/>
 </Record>
 <Record type="HKQuantityTypeIdentifierBodyMass" startDate="2024-01-01 09:00:00 -0800" value="70"/>
 <Record type="HKQuantityTypeIdentifierHeartRate" startDate="2024-01-01 10:00:00 -0800"/>
</HealthData>`

	records, err := ParseDocument(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, types.StepCount, records[0].Type)
	assert.Equal(t, "100", records[0].Value)
	assert.True(t, records[0].HasValue)
	assert.True(t, records[0].HasStartDate)
	assert.Equal(t, 0, records[0].Index)
	assert.Greater(t, records[0].Line, 0)

	assert.Equal(t, 1, records[1].Index)

	assert.Equal(t, 2, records[2].Index)
	assert.False(t, records[2].HasValue)
}

func TestParseDocumentFilter(t *testing.T) {
	doc := `<HealthData>
 <Record type="HKQuantityTypeIdentifierBodyMass" startDate="2024-01-01 09:00" value="70"/>
 <Record type="HKQuantityTypeIdentifierHeartRate" startDate="2024-01-01 10:00" value="60"/>
</HealthData>`

	records, err := ParseDocument(strings.NewReader(doc), IsTracked)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.HeartRate, records[0].Type)
	// Index still counts the filtered-out record
	assert.Equal(t, 1, records[0].Index)
}

func TestParseDocumentTopLevelOnly(t *testing.T) {
	doc := `<HealthData>
 <Workout workoutActivityType="HKWorkoutActivityTypeWalking">
  <Record type="HKQuantityTypeIdentifierStepCount" startDate="2024-01-01 09:00" value="999"/>
 </Workout>
</HealthData>`

	records, err := ParseDocument(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseDocumentMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty input", ""},
		{"whitespace only", "   \n"},
		{"not xml", "this is not xml"},
		{"unclosed root", `<HealthData><Record type="x" value="1"/>`},
		{"mismatched tags", `<HealthData><Record></Other></HealthData>`},
		{"unterminated tag after root", `<HealthData><Record type="x" value="1"/></HealthData><oops`},
		{"second root element", `<HealthData></HealthData><Second/>`},
		{"text after root", `<HealthData></HealthData>trailing`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument(strings.NewReader(tt.doc), nil)
			require.Error(t, err)

			var docErr *MalformedDocumentError
			assert.True(t, errors.As(err, &docErr), "expected MalformedDocumentError, got %T", err)
		})
	}
}

func TestParseDocumentTrailingMisc(t *testing.T) {
	doc := "<HealthData><Record type=\"x\" value=\"1\"/></HealthData>\n<!-- exported -->\n<?done?>\n"

	records, err := ParseDocument(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseDocumentDeclaredEncoding(t *testing.T) {
	// "Caf\xe9" is Latin-1 for "Café"
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<HealthData><Record type=\"Caf\xe9\" startDate=\"2024-01-01 08:00\" value=\"1\"/></HealthData>"

	records, err := ParseDocument(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Café", records[0].Type)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-01-01 08:00:00 -0800", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01 23:30:00 +0900", time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)},
		{"2024-01-01 08:00:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01 08:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00Z", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T23:15:00-05:00", time.Date(2024, 1, 1, 23, 15, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00.5", time.Date(2024, 1, 1, 8, 0, 0, 500000000, time.UTC)},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"  2024-01-01 08:00  ", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	for _, bad := range []string{"", "yesterday", "01/02/2024", "2024-13-01 08:00"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 72.5 ")
	require.NoError(t, err)
	assert.Equal(t, 72.5, v)

	v, err = ParseValue("1e3")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	for _, bad := range []string{"", "abc", "NaN", "Inf", "-Inf", "12 steps"} {
		_, err := ParseValue(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
