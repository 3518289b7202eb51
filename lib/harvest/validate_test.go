package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validRaw() RawRecord {
	return RawRecord{
		"case_id":      "2574263",
		"party_name":   "Doe, John",
		"officer":      "Judge A",
		"hearing_date": "03/15/2026",
		"hearing_time": "8:30 AM",
		"location":     "Courtroom 3B",
	}
}

func TestValidateAccepts(t *testing.T) {
	rec, err := testSchema.Validate(validRaw())
	require.NoError(t, err)
	require.Equal(t, "2574263", rec.Key)
	require.Equal(t, "Doe, John", rec.Fields["party_name"])
	require.Equal(t, "03/15/2026", rec.Fields["hearing_date"])
	require.Equal(t, "8:30 AM", rec.Fields["hearing_time"])
}

func TestValidateRejects(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(RawRecord)
		field  string
	}{
		{
			name:   "missing identifier",
			mutate: func(r RawRecord) { delete(r, "case_id") },
			field:  "case_id",
		},
		{
			name:   "blank identifier",
			mutate: func(r RawRecord) { r["case_id"] = "  " },
			field:  "case_id",
		},
		{
			name:   "non-integer identifier",
			mutate: func(r RawRecord) { r["case_id"] = "24-CR-1234" },
			field:  "case_id",
		},
		{
			name:   "missing required party",
			mutate: func(r RawRecord) { delete(r, "party_name") },
			field:  "party_name",
		},
		{
			name:   "malformed date",
			mutate: func(r RawRecord) { r["hearing_date"] = "2026-03-15" },
			field:  "hearing_date",
		},
		{
			name:   "malformed time",
			mutate: func(r RawRecord) { r["hearing_time"] = "25:99" },
			field:  "hearing_time",
		},
	}

	for _, tc := range testCases {
		raw := validRaw()
		tc.mutate(raw)

		_, err := testSchema.Validate(raw)
		require.Error(t, err, tc.name)

		rej, ok := err.(Rejection)
		require.True(t, ok, tc.name)
		require.Equal(t, tc.field, rej.Field, tc.name)
	}
}

func TestValidateOptionalFieldMayBeAbsent(t *testing.T) {
	raw := validRaw()
	delete(raw, "hearing_time")
	delete(raw, "location")

	rec, err := testSchema.Validate(raw)
	require.NoError(t, err)
	_, present := rec.Fields["hearing_time"]
	require.False(t, present)
}

func TestValidateNormalizesIdentifier(t *testing.T) {
	raw := validRaw()
	raw["case_id"] = "0002574263"

	rec, err := testSchema.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, "2574263", rec.Key)
}
