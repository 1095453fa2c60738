package event

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	SeasonSpring = "Printemps"
	SeasonSummer = "Été"
	SeasonAutumn = "Automne"
	SeasonWinter = "Hiver"

	PeriodMorning   = "Matin"
	PeriodAfternoon = "Après-midi"
	PeriodEvening   = "Soir"
	PeriodNight     = "Nuit"
)

var (
	monthNames = [12]string{
		"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
		"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
	}
	weekdayNames = [7]string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}
)

const (
	isoDate          = "2006-01-02"
	isoDateTime      = "2006-01-02T15:04:05"
	isoDateTimeZoned = "2006-01-02T15:04:05-07:00"

	// Numeric timestamps above this are taken as epoch milliseconds.
	epochMillisThreshold = 1e11
)

// Breakdown is the canonical calendar decomposition of an event start.
// The zero value stands for "no usable date"; optional fields are empty or nil then.
type Breakdown struct {
	Date         string `json:"event_date,omitempty"`
	DateTime     string `json:"event_datetime,omitempty"`
	Year         int    `json:"year,omitempty"`
	Month        int    `json:"month,omitempty"`
	MonthName    string `json:"month_name,omitempty"`
	Day          int    `json:"day,omitempty"`
	Weekday      int    `json:"day_of_week,omitempty"`
	WeekdayName  string `json:"day_of_week_name,omitempty"`
	IsWeekend    bool   `json:"is_weekend"`
	Season       string `json:"season,omitempty"`
	TimeOfDay    string `json:"time_period,omitempty"`
	DurationDays *int   `json:"duration_days,omitempty"`
	IsMultiDay   bool   `json:"is_multi_day"`
}

func (b Breakdown) IsZero() bool { return b.Date == "" }

// Decompose derives every start-based field from t. End-related fields are left untouched.
func Decompose(t time.Time) Breakdown {
	weekday := WeekdayIndex(t)
	return Breakdown{
		Date:        t.Format(isoDate),
		DateTime:    FormatDateTime(t),
		Year:        t.Year(),
		Month:       int(t.Month()),
		MonthName:   monthNames[t.Month()-1],
		Day:         t.Day(),
		Weekday:     weekday,
		WeekdayName: weekdayNames[weekday-1],
		IsWeekend:   weekday >= 6,
		Season:      Season(t.Month(), t.Day()),
		TimeOfDay:   TimeOfDay(t.Hour()),
	}
}

// BreakdownOf parses start (and optionally end) and decomposes them.
// It returns ErrNoDate when start is absent and ErrUnparseableDate when it cannot be read;
// in both cases the returned Breakdown is the zero value.
func BreakdownOf(start any, end any) (Breakdown, error) {
	startAt, err := ParseFlexible(start)
	if err != nil {
		return Breakdown{}, err
	}

	b := Decompose(startAt)
	endAt, err := ParseFlexible(end)
	if err != nil {
		return b, nil
	}
	if endAt.After(startAt) {
		days := CalendarDaysBetween(startAt, endAt)
		b.DurationDays = &days
		b.IsMultiDay = days > 0
	}
	return b, nil
}

// ParseFlexible accepts free-form date strings, time.Time values and numeric
// epoch timestamps (seconds or milliseconds). Values without a zone are read as UTC wall-clock.
func ParseFlexible(v any) (time.Time, error) {
	switch value := v.(type) {
	case nil:
		return time.Time{}, ErrNoDate
	case time.Time:
		if value.IsZero() {
			return time.Time{}, ErrNoDate
		}
		return value, nil
	case *time.Time:
		if value == nil || value.IsZero() {
			return time.Time{}, ErrNoDate
		}
		return *value, nil
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return time.Time{}, ErrNoDate
		}
		t, err := dateparse.ParseIn(trimmed, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnparseableDate, trimmed, err)
		}
		return t, nil
	}

	n, ok := Number(v)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrUnparseableDate, v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return time.Time{}, fmt.Errorf("%w: timestamp %v", ErrUnparseableDate, n)
	}
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// FormatDateTime renders t as ISO-8601, omitting the offset for UTC wall-clock values.
func FormatDateTime(t time.Time) string {
	if _, offset := t.Zone(); offset == 0 {
		return t.Format(isoDateTime)
	}
	return t.Format(isoDateTimeZoned)
}

// WeekdayIndex maps Monday..Sunday to 1..7.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

// Season uses fixed day boundaries: Mar 20, Jun 21, Sep 22 and Dec 21.
func Season(month time.Month, day int) string {
	switch {
	case (month == time.March && day >= 20) || month == time.April || month == time.May || (month == time.June && day < 21):
		return SeasonSpring
	case (month == time.June && day >= 21) || month == time.July || month == time.August || (month == time.September && day < 22):
		return SeasonSummer
	case (month == time.September && day >= 22) || month == time.October || month == time.November || (month == time.December && day < 21):
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 23:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// CalendarDaysBetween counts whole calendar days from start's date to end's date,
// each read in its own zone.
func CalendarDaysBetween(start time.Time, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}
