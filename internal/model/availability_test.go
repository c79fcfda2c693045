package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays9to17() Availability {
	return Availability{FromWeekDay: 1, ToWeekDay: 5, FromTime: 9 * 60, ToTime: 17 * 60}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"00:00", 0, false},
		{"17:30:45", 1050, false},
		{"24:00", 0, true},
		{"9:00", 0, true},
		{"09:60", 0, true},
		{"nine", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 8, 15, 0, 0, time.UTC)))
	assert.Equal(t, "08:15", tod.String())

	require.NoError(t, tod.Scan([]byte("13:45:00")))
	assert.Equal(t, "13:45", tod.String())

	require.NoError(t, tod.Scan("07:05:00.000000"))
	assert.Equal(t, "07:05", tod.String())

	assert.Error(t, tod.Scan(42))

	v, err := TimeOfDay(9*60 + 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "09:05:00", v)
}

func TestAvailabilityJSON(t *testing.T) {
	raw := `{"available_from_week_day":1,"available_to_week_day":5,"available_from_time":"09:00","available_to_time":"17:30"}`

	var a Availability
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, Weekday(1), a.FromWeekDay)
	assert.Equal(t, TimeOfDay(17*60+30), a.ToTime)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"available_from_time":"25:00"}`), &a))
}

func TestAvailabilityValidate(t *testing.T) {
	assert.NoError(t, weekdays9to17().Validate())

	a := weekdays9to17()
	a.ToWeekDay = 7
	assert.ErrorIs(t, a.Validate(), ErrInvalidWeekday)

	a = weekdays9to17()
	a.FromWeekDay, a.ToWeekDay = 5, 1
	assert.ErrorIs(t, a.Validate(), ErrWeekdayRange)

	a = weekdays9to17()
	a.FromTime = a.ToTime
	assert.ErrorIs(t, a.Validate(), ErrTimeRange)

	a = weekdays9to17()
	a.ToTime = 24 * 60
	assert.ErrorIs(t, a.Validate(), ErrInvalidTimeOfDay)

	// a single day is allowed
	a = Availability{FromWeekDay: 0, ToWeekDay: 0, FromTime: 0, ToTime: 60}
	assert.NoError(t, a.Validate())
}

func TestAvailabilityCovers(t *testing.T) {
	a := weekdays9to17()
	// 2024-03-04 is a Monday
	monday := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }

	assert.True(t, a.Covers(monday(9, 0), time.UTC))
	assert.True(t, a.Covers(monday(16, 59), time.UTC))
	assert.False(t, a.Covers(monday(17, 0), time.UTC))
	assert.False(t, a.Covers(monday(8, 59), time.UTC))
	assert.False(t, a.Covers(time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC), time.UTC), "sunday")
	assert.False(t, a.Covers(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), time.UTC), "saturday")

	// 08:30 UTC is 09:30 in a UTC+1 zone
	plusOne := time.FixedZone("UTC+1", 3600)
	assert.True(t, a.Covers(monday(8, 30), plusOne))
}

func TestAvailabilitySlots(t *testing.T) {
	a := Availability{FromWeekDay: 1, ToWeekDay: 5, FromTime: 9 * 60, ToTime: 10*60 + 45}
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	slots := a.Slots(day, 30*time.Minute)
	require.Len(t, slots, 3)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), slots[2])

	assert.Nil(t, a.Slots(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), 30*time.Minute))
	assert.Nil(t, a.Slots(day, 0))
}

func TestWeekdayString(t *testing.T) {
	assert.Equal(t, "Sunday", Weekday(0).String())
	assert.Equal(t, "Saturday", Weekday(6).String())
	assert.Equal(t, "Weekday(9)", Weekday(9).String())
}
