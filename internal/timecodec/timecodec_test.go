package timecodec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teoh/bintangbuddy/internal/timecodec"
)

func TestParseRemoteInstant(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "whole seconds",
			input:    "2022-01-13T18:00:00Z",
			expected: time.Date(2022, 1, 13, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "request layout with microseconds",
			input:    "2022-01-13T08:00:00.000000Z",
			expected: time.Date(2022, 1, 13, 8, 0, 0, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "date only", input: "2022-01-13", wantErr: true},
		{name: "offset instead of Z", input: "2022-01-13T18:00:00+01:00", wantErr: true},
		{name: "garbage", input: "yesterday at noon", wantErr: true},
		{name: "single digit hour", input: "2022-01-13T8:00:00Z", wantErr: true},
		{name: "single digit day", input: "2022-01-3T18:00:00Z", wantErr: true},
		{name: "empty fraction", input: "2022-01-13T18:00:00.Z", wantErr: true},
		{name: "trailing text", input: "2022-01-13T18:00:00Zjunk", wantErr: true},
		{
			name:     "millisecond fraction",
			input:    "2022-01-13T18:00:00.250Z",
			expected: time.Date(2022, 1, 13, 18, 0, 0, 250000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := timecodec.ParseRemoteInstant(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, timecodec.ErrMalformedTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestFormatRemoteInstant(t *testing.T) {
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)

	midnight := time.Date(2022, 1, 13, 0, 0, 0, 0, loc)
	assert.Equal(t, "2022-01-13T08:00:00.000000Z", timecodec.FormatRemoteInstant(midnight))
}

func TestRemoteInstantRoundTrip(t *testing.T) {
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)

	instants := []time.Time{
		time.Date(2022, 1, 13, 0, 0, 0, 0, loc),
		time.Date(2024, 3, 10, 3, 0, 0, 0, loc), // DST start
		time.Date(2024, 11, 3, 1, 30, 0, 0, loc),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Unix(1700000000, 0),
	}

	for _, x := range instants {
		got, err := timecodec.ParseRemoteInstant(timecodec.FormatRemoteInstant(x))
		require.NoError(t, err)
		assert.True(t, x.Truncate(time.Second).Equal(got), "round trip of %s gave %s", x, got)
	}
}

func TestFormatDisplayTime(t *testing.T) {
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)

	utc := time.Date(2022, 1, 14, 2, 0, 0, 0, time.UTC)
	local := timecodec.ToLocalZone(utc, loc)

	assert.Equal(t, 18, local.Hour())
	assert.Equal(t, "06:00PM", timecodec.FormatDisplayTime(local))
	assert.Equal(t, "10:00AM", timecodec.FormatDisplayTime(time.Date(2022, 1, 13, 10, 0, 0, 0, loc)))
	assert.Equal(t, "12:30AM", timecodec.FormatDisplayTime(time.Date(2022, 1, 13, 0, 30, 0, 0, loc)))
}

func TestParseDate(t *testing.T) {
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)

	d, err := timecodec.ParseDate("2022-01-13", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 13, 0, 0, 0, 0, loc), d)

	_, err = timecodec.ParseDate("20220113", loc)
	assert.Error(t, err)
}

func TestStartOfDay(t *testing.T) {
	loc, err := timecodec.LoadZone("America/Los_Angeles")
	require.NoError(t, err)

	// 05:00 UTC on the 14th is still the evening of the 13th in California.
	now := time.Date(2022, 1, 14, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2022, 1, 13, 0, 0, 0, 0, loc), timecodec.StartOfDay(now, loc))
}

func TestLoadZoneUnknown(t *testing.T) {
	_, err := timecodec.LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
