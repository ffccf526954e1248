package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Form field names, shared by the HTTP and CLI collaborators.
const (
	FieldCategory        = "category"
	FieldDate            = "date"
	FieldSleepHours      = "sleepHours"
	FieldScreenHours     = "screenHours"
	FieldExerciseMinutes = "exerciseMinutes"
	FieldRating          = "rating"
	FieldWaterCups       = "waterCups"
	FieldStressLevel     = "stressLevel"
	FieldCondition       = "condition"
	FieldMood            = "mood"
	FieldTriggers        = "triggers"
)

type (
	// RawFields carries submitted form values keyed by field name.
	RawFields map[string][]string

	// FieldErrors maps every field of a category to its error message.
	// An empty message means the field is valid.
	FieldErrors map[string]string
)

type numberRule struct {
	field string
	label string
	min   float64
	max   float64
	whole bool
}

var (
	sleepRule    = numberRule{field: FieldSleepHours, label: "Sleep hours", min: 0, max: 24}
	screenRule   = numberRule{field: FieldScreenHours, label: "Screen time", min: 0, max: 24}
	exerciseRule = numberRule{field: FieldExerciseMinutes, label: "Exercise minutes", min: 0, max: 600}
	ratingRule   = numberRule{field: FieldRating, label: "Focus rating", min: 1, max: 10, whole: true}
	waterRule    = numberRule{field: FieldWaterCups, label: "Water intake", min: 0, max: 50}
	stressRule   = numberRule{field: FieldStressLevel, label: "Stress level", min: 1, max: 10, whole: true}
)

// Get returns the first value submitted for key, or "".
func (r RawFields) Get(key string) string {
	if vs := r[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Set replaces the values of key with v.
func (r RawFields) Set(key, v string) {
	r[key] = []string{v}
}

// Valid reports whether no field carries an error message.
func (fe FieldErrors) Valid() bool {
	for _, msg := range fe {
		if msg != "" {
			return false
		}
	}
	return true
}

// Failed returns the names of invalid fields, sorted.
func (fe FieldErrors) Failed() []string {
	var out []string
	for field, msg := range fe {
		if msg != "" {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks raw form values for category c and builds the entry.
//
// Every field is evaluated so the caller can show all problems at once.
// The entry is returned only when every field passes; focus and skin entries
// are dated with now, mood entries with the submitted date.
func Validate(c Category, raw RawFields, now time.Time) (Entry, FieldErrors) {
	if raw == nil {
		raw = RawFields{}
	}
	switch c {
	case Focus:
		return validateFocus(raw, now)
	case Skin:
		return validateSkin(raw, now)
	case Mood:
		return validateMood(raw)
	default:
		return nil, FieldErrors{FieldCategory: fmt.Sprintf("Unknown category %q.", string(c))}
	}
}

func validateFocus(raw RawFields, now time.Time) (Entry, FieldErrors) {
	errs := FieldErrors{}
	sleep := checkNumber(raw, sleepRule, errs)
	screen := checkNumber(raw, screenRule, errs)
	exercise := checkNumber(raw, exerciseRule, errs)
	rating := checkNumber(raw, ratingRule, errs)
	if !errs.Valid() {
		return nil, errs
	}
	return FocusEntry{
		Date:            now.Format(DateLayout),
		SleepHours:      sleep,
		ScreenHours:     screen,
		ExerciseMinutes: exercise,
		Rating:          int(rating),
	}, errs
}

func validateSkin(raw RawFields, now time.Time) (Entry, FieldErrors) {
	errs := FieldErrors{}
	sleep := checkNumber(raw, sleepRule, errs)
	water := checkNumber(raw, waterRule, errs)
	stress := checkNumber(raw, stressRule, errs)

	condition := Condition(strings.ToLower(strings.TrimSpace(raw.Get(FieldCondition))))
	switch {
	case condition == "":
		errs[FieldCondition] = "Please select your skin condition."
	case !condition.IsValid():
		errs[FieldCondition] = "Skin condition must be clear, dry or irritated."
	default:
		errs[FieldCondition] = ""
	}

	if !errs.Valid() {
		return nil, errs
	}
	return SkinEntry{
		Date:        now.Format(DateLayout),
		SleepHours:  sleep,
		WaterCups:   water,
		StressLevel: int(stress),
		Condition:   condition,
	}, errs
}

func validateMood(raw RawFields) (Entry, FieldErrors) {
	errs := FieldErrors{}

	date := strings.TrimSpace(raw.Get(FieldDate))
	if date == "" {
		errs[FieldDate] = "Please choose a date."
	} else if _, err := ParseDate(date); err != nil {
		errs[FieldDate] = "Date must use the YYYY-MM-DD format."
	} else {
		errs[FieldDate] = ""
	}

	mood := MoodKind(strings.ToLower(strings.TrimSpace(raw.Get(FieldMood))))
	switch {
	case mood == "":
		errs[FieldMood] = "Please select a mood."
	case !mood.IsValid():
		errs[FieldMood] = "Mood must be happy, calm, stressed or tired."
	default:
		errs[FieldMood] = ""
	}

	triggers := NormalizeTriggers(raw[FieldTriggers])
	errs[FieldTriggers] = ""

	if !errs.Valid() {
		return nil, errs
	}
	return MoodEntry{Date: date, Mood: mood, Triggers: triggers}, errs
}

// NormalizeTriggers splits comma-separated values, trims them and drops
// blanks and repeats while keeping first-seen order.
func NormalizeTriggers(values []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func checkNumber(raw RawFields, rule numberRule, errs FieldErrors) float64 {
	var (
		v   float64
		err error
	)
	if rule.whole {
		var n int
		n, err = ParseWhole(raw.Get(rule.field), int(rule.min), int(rule.max))
		v = float64(n)
	} else {
		v, err = ParseBounded(raw.Get(rule.field), rule.min, rule.max)
	}
	if err != nil {
		errs[rule.field] = rule.message()
		return 0
	}
	errs[rule.field] = ""
	return v
}

func (r numberRule) message() string {
	if r.whole {
		return fmt.Sprintf("%s must be a whole number between %g and %g.", r.label, r.min, r.max)
	}
	return fmt.Sprintf("%s must be a number between %g and %g.", r.label, r.min, r.max)
}

// CheckEntry applies the admission rules to an already typed entry, such as
// one read from an export document. Focus and skin dates must parse too.
func CheckEntry(e Entry) (Entry, FieldErrors) {
	raw := RawFields{}
	switch v := e.(type) {
	case FocusEntry:
		day, err := ParseDate(v.Date)
		if err != nil {
			return nil, FieldErrors{FieldDate: "Date must use the YYYY-MM-DD format."}
		}
		raw.Set(FieldSleepHours, formatNumber(v.SleepHours))
		raw.Set(FieldScreenHours, formatNumber(v.ScreenHours))
		raw.Set(FieldExerciseMinutes, formatNumber(v.ExerciseMinutes))
		raw.Set(FieldRating, strconv.Itoa(v.Rating))
		return validateFocus(raw, day)
	case SkinEntry:
		day, err := ParseDate(v.Date)
		if err != nil {
			return nil, FieldErrors{FieldDate: "Date must use the YYYY-MM-DD format."}
		}
		raw.Set(FieldSleepHours, formatNumber(v.SleepHours))
		raw.Set(FieldWaterCups, formatNumber(v.WaterCups))
		raw.Set(FieldStressLevel, strconv.Itoa(v.StressLevel))
		raw.Set(FieldCondition, string(v.Condition))
		return validateSkin(raw, day)
	case MoodEntry:
		raw.Set(FieldDate, v.Date)
		raw.Set(FieldMood, string(v.Mood))
		triggers, msg := checkTriggers(v.Triggers)
		entry, errs := validateMood(raw)
		errs[FieldTriggers] = msg
		if !errs.Valid() {
			return nil, errs
		}
		mood := entry.(MoodEntry)
		mood.Triggers = triggers
		return mood, errs
	default:
		return nil, FieldErrors{FieldCategory: "Unknown entry type."}
	}
}

// checkTriggers keeps typed triggers as given apart from trimming. Blank
// triggers and triggers containing a comma are rejected.
func checkTriggers(values []string) ([]string, string) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			return nil, "Triggers cannot be blank."
		case strings.Contains(v, ","):
			return nil, "Triggers cannot contain commas."
		}
		out = append(out, v)
	}
	return out, ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
