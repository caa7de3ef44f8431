package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"tourbook/internal/domain"
)

const tourColumns = "id, name, description, start_date, end_date, guide_id, created_at"

// orderClause maps a sort order to its ORDER BY clause. The id tiebreak
// keeps pages stable.
func orderClause(order domain.SortOrder) string {
	switch order {
	case domain.SortByName:
		return "name ASC, id ASC"
	case domain.SortByNewest:
		return "created_at DESC, id DESC"
	default:
		return "start_date ASC, id ASC"
	}
}

// GetTourPage returns one page of tours in the requested order.
func (d *DB) GetTourPage(ctx context.Context, page, pageSize int, order domain.SortOrder) (domain.TourPage, error) {
	var total int
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM tours").Scan(&total); err != nil {
		return domain.TourPage{}, err
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+tourColumns+" FROM tours ORDER BY "+orderClause(order)+" LIMIT $1 OFFSET $2",
		pageSize, domain.PageOffset(page, pageSize))
	if err != nil {
		return domain.TourPage{}, err
	}
	defer rows.Close() //nolint:errcheck

	items := make([]domain.Tour, 0, pageSize)
	for rows.Next() {
		var t domain.Tour
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.GuideID, &t.CreatedAt); err != nil {
			return domain.TourPage{}, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return domain.TourPage{}, err
	}

	if err := d.loadImages(ctx, items); err != nil {
		return domain.TourPage{}, err
	}
	return domain.NewTourPage(items, page, pageSize, total), nil
}

func (d *DB) loadImages(ctx context.Context, tours []domain.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	ids := make([]int64, len(tours))
	index := make(map[int64]int, len(tours))
	for i := range tours {
		ids[i] = tours[i].ID
		index[tours[i].ID] = i
		tours[i].Images = []string{}
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT tour_id, filename FROM tour_images WHERE tour_id = ANY($1) ORDER BY tour_id, position",
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		i := index[id]
		tours[i].Images = append(tours[i].Images, name)
	}
	return rows.Err()
}

// GetTour retrieves a tour by ID.
func (d *DB) GetTour(ctx context.Context, id int64) (*domain.Tour, error) {
	var t domain.Tour
	err := d.sql.QueryRowContext(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1", id).
		Scan(&t.ID, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.GuideID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	one := []domain.Tour{t}
	if err := d.loadImages(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// CreateTour inserts t and its images in one transaction.
func (d *DB) CreateTour(ctx context.Context, t *domain.Tour) (int64, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var id int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO tours (name, description, start_date, end_date, guide_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			t.Name, t.Description, t.StartDate.UTC(), t.EndDate.UTC(), t.GuideID, createdAt.UTC(),
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertImages(ctx, tx, id, t.Images)
	})
	return id, err
}

func insertImages(ctx context.Context, tx *sql.Tx, tourID int64, names []string) error {
	for i, name := range names {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tour_images (tour_id, position, filename) VALUES ($1, $2, $3)",
			tourID, i, name); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTour changes name and description of a tour.
func (d *DB) UpdateTour(ctx context.Context, id int64, name, description string) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE tours SET name = $2, description = $3 WHERE id = $1", id, name, description)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("tour not found")
	}
	return nil
}

// RegisterForTour records an application. It returns false when the user
// already applied for the tour.
func (d *DB) RegisterForTour(ctx context.Context, userID, tourID int64, at time.Time) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO registrations (user_id, tour_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		userID, tourID, at.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
