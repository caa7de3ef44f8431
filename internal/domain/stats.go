package domain

import (
	"context"
	"time"
)

// StatKind names one of the admin statistics reports.
type StatKind string

const (
	StatRegisteredUsers StatKind = "reg_user"
	StatGuidedTours     StatKind = "guided_tour"
	StatPopularity      StatKind = "popularity"
)

// StatPoint is a labelled value in a report.
type StatPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// StatsRepository computes report data. Intervals are inclusive days
// [from, to] in local time.
type StatsRepository interface {
	RegisteredUsersPerDay(ctx context.Context, from, to time.Time) ([]StatPoint, error)
	ToursPerGuide(ctx context.Context, from, to time.Time) ([]StatPoint, error)
	ApplicationsPerGuide(ctx context.Context, from, to time.Time) ([]StatPoint, error)
}
