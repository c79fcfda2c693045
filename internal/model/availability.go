package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday uses the same numbering as time.Weekday: 0 is Sunday, 6 is Saturday.
type Weekday int16

func (d Weekday) Valid() bool {
	return d >= 0 && d <= 6
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int16(d))
	}
	return time.Weekday(d).String()
}

// TimeOfDay is a wall-clock time in minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

var ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM or HH:MM:SS between 00:00 and 23:59")

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS"; seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidTimeOfDay
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, ErrInvalidTimeOfDay
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, ErrInvalidTimeOfDay
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || (len(nums) == 3 && nums[2] > 59) {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(nums[0]*60 + nums[1]), nil
}

// TimeOfDayOf returns the wall clock of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidTimeOfDay
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute()), nil
}

// Scan reads a postgres time column, which lib/pq hands over as time.Time.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(s string) error {
	// drop fractional seconds such as 09:00:00.000000
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Availability is the weekly window a doctor takes appointments in. Both ends of
// the weekday range are inclusive; the time range is half open.
type Availability struct {
	FromWeekDay Weekday   `json:"available_from_week_day" db:"available_from_week_day"`
	ToWeekDay   Weekday   `json:"available_to_week_day" db:"available_to_week_day"`
	FromTime    TimeOfDay `json:"available_from_time" db:"available_from_time"`
	ToTime      TimeOfDay `json:"available_to_time" db:"available_to_time"`
}

var (
	ErrInvalidWeekday   = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrWeekdayRange     = errors.New("available_from_week_day must not be after available_to_week_day")
	ErrTimeRange        = errors.New("available_from_time must be before available_to_time")
	ErrNotAvailableTime = errors.New("doctor is not available at that time")
)

func (a Availability) Validate() error {
	if !a.FromWeekDay.Valid() || !a.ToWeekDay.Valid() {
		return ErrInvalidWeekday
	}
	if a.FromWeekDay > a.ToWeekDay {
		return ErrWeekdayRange
	}
	if !a.FromTime.Valid() || !a.ToTime.Valid() {
		return ErrInvalidTimeOfDay
	}
	if a.FromTime >= a.ToTime {
		return ErrTimeRange
	}
	return nil
}

// CoversDay reports whether the weekday of t (in t's location) is in range.
func (a Availability) CoversDay(t time.Time) bool {
	d := Weekday(t.Weekday())
	return d >= a.FromWeekDay && d <= a.ToWeekDay
}

// Covers reports whether t, read in loc, falls inside the window.
func (a Availability) Covers(t time.Time, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	if !a.CoversDay(t) {
		return false
	}
	clock := TimeOfDayOf(t)
	return clock >= a.FromTime && clock < a.ToTime
}

// Slots lists start times of step-long slots on date's calendar day that fit
// completely inside the window. Nil when the day is not covered.
func (a Availability) Slots(date time.Time, step time.Duration) []time.Time {
	if step <= 0 || !a.CoversDay(date) {
		return nil
	}
	end := a.ToTime.On(date)
	var slots []time.Time
	for s := a.FromTime.On(date); !s.Add(step).After(end); s = s.Add(step) {
		slots = append(slots, s)
	}
	return slots
}
