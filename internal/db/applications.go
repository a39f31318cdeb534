package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"volunteer-service/internal/models"
)

const applicationColumns = `
	id, user_id, event_id, motivation, phone, extra_notes, status, created_at, updated_at, user_info`

// CreateApplication inserts a new application. A second application for the same
// (user, event) pair fails with ErrDuplicate.
func (d *DB) CreateApplication(ctx context.Context, a models.Application) error {
	query := `
	INSERT INTO applications (` + applicationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := d.Pool.Exec(ctx, query,
		a.ID,
		a.SubjectID,
		a.EventID,
		a.Motivation,
		a.ContactPhone,
		a.ExtraNotes,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
		a.SubjectSnapshot, // encoded as JSONB
	)
	return translate(err, "insert application")
}

func (d *DB) GetApplication(ctx context.Context, id string) (models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	rows, err := d.Pool.Query(ctx, query, id)
	if err != nil {
		return models.Application{}, translate(err, "get application")
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanApplication)
	if err != nil {
		return models.Application{}, translate(err, fmt.Sprintf("get application %s", id))
	}
	return a, nil
}

func (d *DB) FindApplication(ctx context.Context, subjectID, eventID string) (models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND event_id = $2`
	rows, err := d.Pool.Query(ctx, query, subjectID, eventID)
	if err != nil {
		return models.Application{}, translate(err, "find application")
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanApplication)
	if err != nil {
		return models.Application{}, translate(err, "find application")
	}
	return a, nil
}

func (d *DB) ListApplicationsBySubject(ctx context.Context, subjectID string) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + `
	FROM applications
	WHERE user_id = $1
	ORDER BY created_at DESC`
	return d.listApplications(ctx, query, subjectID)
}

// ListApplicationsByEvents returns the applications for any of the given events,
// leaving out cancelled ones when excludeCancelled is set.
func (d *DB) ListApplicationsByEvents(ctx context.Context, eventIDs []string, excludeCancelled bool) ([]models.Application, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + applicationColumns + `
	FROM applications
	WHERE event_id = ANY($1)`
	if excludeCancelled {
		query += ` AND status <> 'cancelled'`
	}
	query += ` ORDER BY created_at DESC`
	return d.listApplications(ctx, query, eventIDs)
}

// TransitionApplication moves an application from t.From to t.To. It reports
// false when the row was not in t.From, so concurrent transitions cannot both win.
func (d *DB) TransitionApplication(ctx context.Context, t models.Transition) (bool, error) {
	query := `
	UPDATE applications
	SET status = $1,
	    extra_notes = COALESCE($2, extra_notes),
	    updated_at = $3
	WHERE id = $4 AND status = $5`

	tag, err := d.Pool.Exec(ctx, query, t.To, t.ExtraNotes, t.At, t.ApplicationID, t.From)
	if err != nil {
		return false, translate(err, "update application status")
	}
	return tag.RowsAffected() == 1, nil
}

func (d *DB) listApplications(ctx context.Context, query string, args ...interface{}) ([]models.Application, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list applications")
	}
	list, err := pgx.CollectRows(rows, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return list, nil
}

func scanApplication(row pgx.CollectableRow) (models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID,
		&a.SubjectID,
		&a.EventID,
		&a.Motivation,
		&a.ContactPhone,
		&a.ExtraNotes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.SubjectSnapshot,
	)
	return a, err
}
