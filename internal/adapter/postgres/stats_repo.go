package postgres

import (
	"context"
	"sort"
	"time"

	"tourbook/internal/domain"
)

// RegisteredUsersPerDay counts sign-ups per local day. Rows are bucketed
// in Go so the server's time zone decides the day boundaries.
func (d *DB) RegisteredUsersPerDay(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT created_at FROM users WHERE created_at >= $1 AND created_at < $2",
		from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	counts := map[string]int{}
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		counts[at.In(time.Local).Format("2006-01-02")]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.StatPoint, 0, len(counts))
	for day, n := range counts {
		out = append(out, domain.StatPoint{Label: day, Value: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// ToursPerGuide counts tours starting in the interval per guide.
func (d *DB) ToursPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	return d.points(ctx, `SELECT u.username, COUNT(*) FROM tours t JOIN users u ON u.id = t.guide_id
		WHERE t.start_date >= $1 AND t.start_date < $2
		GROUP BY u.username ORDER BY 2 DESC, 1`, from, to.AddDate(0, 0, 1))
}

// ApplicationsPerGuide counts applications made in the interval per guide
// of the tour applied for.
func (d *DB) ApplicationsPerGuide(ctx context.Context, from, to time.Time) ([]domain.StatPoint, error) {
	return d.points(ctx, `SELECT u.username, COUNT(*) FROM registrations r
		JOIN tours t ON t.id = r.tour_id JOIN users u ON u.id = t.guide_id
		WHERE r.created_at >= $1 AND r.created_at < $2
		GROUP BY u.username ORDER BY 2 DESC, 1`, from, to.AddDate(0, 0, 1))
}

func (d *DB) points(ctx context.Context, query string, args ...any) ([]domain.StatPoint, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.StatPoint{}
	for rows.Next() {
		var p domain.StatPoint
		if err := rows.Scan(&p.Label, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
