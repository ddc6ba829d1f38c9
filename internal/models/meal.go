package models

import (
	"fmt"
	"strings"
	"time"
)

// MealType is the scanner-facing name of a meal session.
type MealType string

const (
	MealBreakfast MealType = "BREAKFAST"
	MealLunch     MealType = "LUNCH"
	MealDinner    MealType = "DINNER"
)

// MealTypes lists every meal session in serving order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// ParseMealType accepts BREAKFAST/LUNCH/DINNER in any case.
func ParseMealType(s string) (MealType, error) {
	switch MealType(strings.ToUpper(strings.TrimSpace(s))) {
	case MealBreakfast:
		return MealBreakfast, nil
	case MealLunch:
		return MealLunch, nil
	case MealDinner:
		return MealDinner, nil
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// Key returns the storage key of the meal session ("breakfast", "lunch", "dinner").
func (m MealType) Key() string {
	return strings.ToLower(string(m))
}

// MealStatus tracks one meal session for one user.
// Consumed implies ConsumedAt is set; once true it never goes back to false.
type MealStatus struct {
	Eligible   bool       `json:"eligible"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Meals holds the status of every meal session. All three are always present.
type Meals struct {
	Breakfast MealStatus `json:"breakfast"`
	Lunch     MealStatus `json:"lunch"`
	Dinner    MealStatus `json:"dinner"`
}

// DefaultMeals is the state of a freshly registered user: all eligible, none consumed.
func DefaultMeals() Meals {
	return Meals{
		Breakfast: MealStatus{Eligible: true},
		Lunch:     MealStatus{Eligible: true},
		Dinner:    MealStatus{Eligible: true},
	}
}

// Get returns the status for a meal session.
func (m Meals) Get(t MealType) MealStatus {
	switch t {
	case MealBreakfast:
		return m.Breakfast
	case MealLunch:
		return m.Lunch
	case MealDinner:
		return m.Dinner
	}
	return MealStatus{}
}

// Set replaces the status for a meal session.
func (m *Meals) Set(t MealType, s MealStatus) {
	switch t {
	case MealBreakfast:
		m.Breakfast = s
	case MealLunch:
		m.Lunch = s
	case MealDinner:
		m.Dinner = s
	}
}

func (m Meals) clone() Meals {
	out := m
	for _, t := range MealTypes {
		s := m.Get(t)
		if s.ConsumedAt != nil {
			at := *s.ConsumedAt
			s.ConsumedAt = &at
		}
		out.Set(t, s)
	}
	return out
}
