// Package stats computes the admin dashboard rollups over the user and team store.
package stats

import (
	"context"
	"fmt"

	"github.com/nexothsav/hackportal/internal/models"
)

// Source is the read-only view of the store the aggregator scans.
type Source interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
}

// MealCounts holds one number per meal session.
type MealCounts struct {
	Breakfast int `json:"breakfast"`
	Lunch     int `json:"lunch"`
	Dinner    int `json:"dinner"`
}

func (m *MealCounts) add(t models.MealType) {
	switch t {
	case models.MealBreakfast:
		m.Breakfast++
	case models.MealLunch:
		m.Lunch++
	case models.MealDinner:
		m.Dinner++
	}
}

// Total is the sum across sessions.
func (m MealCounts) Total() int {
	return m.Breakfast + m.Lunch + m.Dinner
}

// MealRates holds a percentage per meal session.
type MealRates struct {
	Breakfast float64 `json:"breakfast"`
	Lunch     float64 `json:"lunch"`
	Dinner    float64 `json:"dinner"`
}

// Stats is the dashboard summary. Rates are percentages in [0, 100].
type Stats struct {
	TotalUsers        int        `json:"total_users"`
	TotalParticipants int        `json:"total_participants"`
	PaidParticipants  int        `json:"paid_participants"`
	TotalTeams        int        `json:"total_teams"`
	MealsConsumed     MealCounts `json:"meals_consumed"`
	TotalMealsServed  int        `json:"total_meals_served"`
	PaymentRate       float64    `json:"payment_rate"`
	MealRates         MealRates  `json:"meal_rates"`
	RedemptionRate    float64    `json:"redemption_rate"`
	Revenue           int        `json:"revenue"`
	Currency          string     `json:"currency,omitempty"`
}

// Aggregator computes Stats. It never writes.
type Aggregator struct {
	src      Source
	fee      int
	currency string
}

// NewAggregator creates a stats aggregator. fee is the per-participant entry fee used for revenue.
func NewAggregator(src Source, fee int, currency string) *Aggregator {
	return &Aggregator{src: src, fee: fee, currency: currency}
}

// GetStats scans users and teams. Meal consumption counts PAID participants only.
func (a *Aggregator) GetStats(ctx context.Context) (Stats, error) {
	users, err := a.src.ListUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list users: %w", err)
	}
	teams, err := a.src.ListTeams(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list teams: %w", err)
	}

	s := Stats{TotalUsers: len(users), TotalTeams: len(teams), Currency: a.currency}
	for _, u := range users {
		if u.Role != models.RoleParticipant {
			continue
		}
		s.TotalParticipants++
		if u.PaymentStatus != models.PaymentPaid {
			continue
		}
		s.PaidParticipants++
		for _, t := range models.MealTypes {
			if u.Meals.Get(t).Consumed {
				s.MealsConsumed.add(t)
			}
		}
	}

	s.TotalMealsServed = s.MealsConsumed.Total()
	s.Revenue = s.PaidParticipants * a.fee
	s.PaymentRate = percent(s.PaidParticipants, s.TotalParticipants)
	s.MealRates = MealRates{
		Breakfast: percent(s.MealsConsumed.Breakfast, s.PaidParticipants),
		Lunch:     percent(s.MealsConsumed.Lunch, s.PaidParticipants),
		Dinner:    percent(s.MealsConsumed.Dinner, s.PaidParticipants),
	}
	s.RedemptionRate = percent(s.TotalMealsServed, s.PaidParticipants*len(models.MealTypes))
	return s, nil
}

// percent returns n/d*100, or 0 when d is 0.
func percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
