package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"volunteer-service/internal/models"
)

// CreateReview inserts a review. A second review for the same
// (user, event, direction) fails with ErrDuplicate.
func (d *DB) CreateReview(ctx context.Context, r models.Review) error {
	query := `
	INSERT INTO reviews (id, event_id, user_id, organisation_id, direction, rating, comment, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := d.Pool.Exec(ctx, query,
		r.ID, r.EventID, r.SubjectUserID, r.OrganisationID, r.Direction, r.Rating, r.Comment, r.CreatedAt)
	return translate(err, "insert review")
}

func (d *DB) ReviewExists(ctx context.Context, subjectUserID, eventID string, dir models.Direction) (bool, error) {
	var exists bool
	err := d.Pool.QueryRow(ctx, `
	SELECT EXISTS (
		SELECT 1 FROM reviews WHERE user_id = $1 AND event_id = $2 AND direction = $3
	)`, subjectUserID, eventID, dir).Scan(&exists)
	if err != nil {
		return false, translate(err, "check review")
	}
	return exists, nil
}

func (d *DB) ListReviews(ctx context.Context, f models.ReviewFilter) ([]models.Review, error) {
	where, args := reviewWhere(f)
	query := `
	SELECT id, event_id, user_id, organisation_id, direction, rating, comment, created_at
	FROM reviews` + where + `
	ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list reviews")
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Review, error) {
		var r models.Review
		err := row.Scan(&r.ID, &r.EventID, &r.SubjectUserID, &r.OrganisationID,
			&r.Direction, &r.Rating, &r.Comment, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	return list, nil
}

// AverageRating returns the mean rating over matching reviews, or nil when none match.
func (d *DB) AverageRating(ctx context.Context, f models.ReviewFilter) (*float64, error) {
	where, args := reviewWhere(f)
	var avg *float64
	err := d.Pool.QueryRow(ctx, `SELECT AVG(rating)::float8 FROM reviews`+where, args...).Scan(&avg)
	if err != nil {
		return nil, translate(err, "average rating")
	}
	return avg, nil
}

func reviewWhere(f models.ReviewFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.OrganisationID != "" {
		add("organisation_id", f.OrganisationID)
	}
	if f.SubjectUserID != "" {
		add("user_id", f.SubjectUserID)
	}
	if f.Direction != "" {
		add("direction", f.Direction)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
