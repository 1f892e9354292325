package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "oops", wantErr: true},
		{in: "", wantErr: true},
		// Trailing characters are not silently dropped.
		{in: "10:30junk", wantErr: true},
		{in: "10:30:00", wantErr: true},
		{in: "10:30 ", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:00", TimeOfDay(540).String())
	assert.Equal(t, "00:05", TimeOfDay(5).String())
	assert.Equal(t, "23:59", TimeOfDay(1439).String())
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(TimeOfDay(570))
	require.NoError(t, err)
	assert.Equal(t, `"09:30"`, string(data))

	var parsed TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"14:45"`), &parsed))
	assert.Equal(t, TimeOfDay(14*60+45), parsed)

	assert.Error(t, json.Unmarshal([]byte(`1445`), &parsed))
}

func TestTimeOfDayOnDate(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	at := TimeOfDay(600).OnDate(date)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC), at)
}

func TestDefinitionOverlaps(t *testing.T) {
	base := Definition{Start: 540, End: 720} // 09:00-12:00

	overlapping := Definition{Start: 660, End: 780} // 11:00-13:00
	assert.True(t, base.Overlaps(overlapping))
	assert.True(t, overlapping.Overlaps(base))

	contained := Definition{Start: 600, End: 660} // 10:00-11:00
	assert.True(t, base.Overlaps(contained))

	touching := Definition{Start: 720, End: 780} // 12:00-13:00
	assert.False(t, base.Overlaps(touching))
	assert.False(t, touching.Overlaps(base))

	disjoint := Definition{Start: 780, End: 840}
	assert.False(t, base.Overlaps(disjoint))
}

func TestDefinitionInstants(t *testing.T) {
	def := Definition{Start: 540, End: 720, Granularity: 30}

	got := def.Instants()
	want := []TimeOfDay{540, 570, 600, 630, 660, 690}
	assert.Equal(t, want, got)

	// End is exclusive even when the sequence lands on it exactly.
	short := Definition{Start: 540, End: 600, Granularity: 60}
	assert.Equal(t, []TimeOfDay{540}, short.Instants())

	// A step that would pass End stops before it.
	uneven := Definition{Start: 540, End: 630, Granularity: 45}
	assert.Equal(t, []TimeOfDay{540, 585}, uneven.Instants())
}
