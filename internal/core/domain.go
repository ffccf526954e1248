package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for every stored entry.
const DateLayout = "2006-01-02"

const (
	Focus Category = "focus"
	Skin  Category = "skin"
	Mood  Category = "mood"
)

const (
	ConditionClear     Condition = "clear"
	ConditionDry       Condition = "dry"
	ConditionIrritated Condition = "irritated"
)

const (
	MoodHappy    MoodKind = "happy"
	MoodCalm     MoodKind = "calm"
	MoodStressed MoodKind = "stressed"
	MoodTired    MoodKind = "tired"
)

type (
	// Category names one independent entry log.
	Category string

	Condition string

	MoodKind string

	// Entry is one validated, immutable record of a category.
	Entry interface {
		Category() Category
	}

	FocusEntry struct {
		Date            string  `json:"date"`
		SleepHours      float64 `json:"sleepHours"`
		ScreenHours     float64 `json:"screenHours"`
		ExerciseMinutes float64 `json:"exerciseMinutes"`
		Rating          int     `json:"rating"`
	}

	SkinEntry struct {
		Date        string    `json:"date"`
		SleepHours  float64   `json:"sleepHours"`
		WaterCups   float64   `json:"waterCups"`
		StressLevel int       `json:"stressLevel"`
		Condition   Condition `json:"condition"`
	}

	MoodEntry struct {
		Date     string   `json:"date"`
		Mood     MoodKind `json:"mood"`
		Triggers []string `json:"triggers"`
	}

	// Snapshot holds the full ordered log of every category.
	Snapshot struct {
		Focus []FocusEntry `json:"focus"`
		Skin  []SkinEntry  `json:"skin"`
		Mood  []MoodEntry  `json:"mood"`
	}
)

var ErrUnknownCategory = errors.New("unknown category")

func (FocusEntry) Category() Category { return Focus }
func (SkinEntry) Category() Category  { return Skin }
func (MoodEntry) Category() Category  { return Mood }

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Focus, Skin, Mood}
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	switch c {
	case Focus, Skin, Mood:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// StorageKey is the key under which the category's log is persisted.
func (c Category) StorageKey() string {
	return string(c) + "Data"
}

// Conditions returns the skin conditions in table order.
func Conditions() []Condition {
	return []Condition{ConditionClear, ConditionDry, ConditionIrritated}
}

func (c Condition) IsValid() bool {
	switch c {
	case ConditionClear, ConditionDry, ConditionIrritated:
		return true
	default:
		return false
	}
}

// Moods returns the known moods in form order.
func Moods() []MoodKind {
	return []MoodKind{MoodHappy, MoodCalm, MoodStressed, MoodTired}
}

func (m MoodKind) IsValid() bool {
	switch m {
	case MoodHappy, MoodCalm, MoodStressed, MoodTired:
		return true
	default:
		return false
	}
}

// ParseDate parses a stored calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Len returns the number of entries stored for c.
func (s Snapshot) Len(c Category) int {
	switch c {
	case Focus:
		return len(s.Focus)
	case Skin:
		return len(s.Skin)
	case Mood:
		return len(s.Mood)
	default:
		return 0
	}
}

// Entries returns the entries of c as a generic slice in log order.
func (s Snapshot) Entries(c Category) []Entry {
	var out []Entry
	switch c {
	case Focus:
		out = make([]Entry, 0, len(s.Focus))
		for _, e := range s.Focus {
			out = append(out, e)
		}
	case Skin:
		out = make([]Entry, 0, len(s.Skin))
		for _, e := range s.Skin {
			out = append(out, e)
		}
	case Mood:
		out = make([]Entry, 0, len(s.Mood))
		for _, e := range s.Mood {
			out = append(out, e)
		}
	}
	return out
}

// Add appends e to the matching category slice.
func (s *Snapshot) Add(e Entry) {
	switch v := e.(type) {
	case FocusEntry:
		s.Focus = append(s.Focus, v)
	case SkinEntry:
		s.Skin = append(s.Skin, v)
	case MoodEntry:
		s.Mood = append(s.Mood, v)
	}
}

// Normalize replaces nil slices with empty ones so JSON encodes [] instead of null.
func (s *Snapshot) Normalize() {
	if s.Focus == nil {
		s.Focus = []FocusEntry{}
	}
	if s.Skin == nil {
		s.Skin = []SkinEntry{}
	}
	if s.Mood == nil {
		s.Mood = []MoodEntry{}
	}
	for i := range s.Mood {
		if s.Mood[i].Triggers == nil {
			s.Mood[i].Triggers = []string{}
		}
	}
}
