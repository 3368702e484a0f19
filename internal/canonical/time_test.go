package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeFixedLayout(t *testing.T) {
	instant := time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05.123456Z", TimeOf(instant).String())
}

func TestTimeZeroMicrosecondsKeepWidth(t *testing.T) {
	instant := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05.000000Z", TimeOf(instant).String())
}

func TestTimeConvertsToUTC(t *testing.T) {
	manila := time.FixedZone("PST", 8*60*60)
	instant := time.Date(2024, 1, 2, 11, 0, 0, 0, manila)
	assert.Equal(t, "2024-01-02T03:00:00.000000Z", TimeOf(instant).String())
}

func TestTimeRoundTrip(t *testing.T) {
	original := TimeOf(time.Date(2024, 6, 30, 23, 59, 59, 999999000, time.UTC))

	parsed, err := ParseTime(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
	assert.True(t, original.AsTime().Equal(parsed.AsTime()))
}

func TestParseTimeRejectsLooseForms(t *testing.T) {
	tests := []string{
		"2024-01-02T03:04:05Z",
		"2024-01-02T03:04:05.123Z",
		"2024-01-02 03:04:05.000000Z",
		"2024-01-02T03:04:05.000000",
		"2024-01-02T03:04:05.000000+08:00",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTime(input)
			require.Error(t, err)
		})
	}
}

func TestDate(t *testing.T) {
	d := NewDate(2024, time.January, 15)
	assert.Equal(t, "2024-01-15", d.String())

	parsed, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	assert.True(t, NewDate(2024, time.February, 1).After(d))
	assert.False(t, d.After(d))
}

func TestDateOfUsesUTCDay(t *testing.T) {
	manila := time.FixedZone("PST", 8*60*60)

	// 2024-01-02T23:30+08:00 is 2024-01-02T15:30Z.
	d := DateOf(time.Date(2024, 1, 2, 23, 30, 0, 0, manila))
	assert.Equal(t, "2024-01-02", d.String())

	// 2024-01-03T06:00+08:00 is 2024-01-02T22:00Z.
	d = DateOf(time.Date(2024, 1, 3, 6, 0, 0, 0, manila))
	assert.Equal(t, "2024-01-02", d.String())
}

func TestParseDateRejects(t *testing.T) {
	for _, input := range []string{"2024-1-2", "02-01-2024", "2024-01-02T00:00:00Z", "yesterday"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDate(input)
			require.Error(t, err)
		})
	}
}
