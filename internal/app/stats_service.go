package app

import (
	"context"
	"time"

	"tourbook/internal/domain"
)

const maxReportDays = 366

// StatsService builds the administrator reports.
type StatsService struct {
	repo domain.StatsRepository
}

// NewStatsService creates a StatsService backed by repo.
func NewStatsService(repo domain.StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

// Report returns the kind report for the local days from..to inclusive.
// The registered-users report has one point per day, zero-filled.
func (s *StatsService) Report(ctx context.Context, kind domain.StatKind, from, to time.Time) ([]domain.StatPoint, error) {
	from, to = startOfDay(from), startOfDay(to)
	if to.Before(from) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxReportDays {
		return nil, domain.Invalid("to", "interval is longer than a year")
	}

	switch kind {
	case domain.StatRegisteredUsers:
		points, err := s.repo.RegisteredUsersPerDay(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return fillDays(points, from, to), nil
	case domain.StatGuidedTours:
		return s.repo.ToursPerGuide(ctx, from, to)
	case domain.StatPopularity:
		return s.repo.ApplicationsPerGuide(ctx, from, to)
	default:
		return nil, domain.Invalid("type", "unknown report type")
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func fillDays(points []domain.StatPoint, from, to time.Time) []domain.StatPoint {
	byDay := make(map[string]int, len(points))
	for _, p := range points {
		byDay[p.Label] += p.Value
	}
	out := make([]domain.StatPoint, 0, len(points))
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		out = append(out, domain.StatPoint{Label: day, Value: byDay[day]})
	}
	return out
}
