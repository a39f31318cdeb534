package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"volunteer-service/internal/models"
)

// Read-only accessors over records owned by the account and event services.

func (d *DB) GetEvent(ctx context.Context, id string) (models.EventSummary, error) {
	var e models.EventSummary
	err := d.Pool.QueryRow(ctx, `
	SELECT id, organisation_id, title, end_date FROM events WHERE id = $1`, id).
		Scan(&e.ID, &e.OrganisationID, &e.Title, &e.EndDate)
	if err != nil {
		return models.EventSummary{}, translate(err, fmt.Sprintf("get event %s", id))
	}
	return e, nil
}

func (d *DB) ListEventsByOrganisation(ctx context.Context, organisationID string) ([]models.EventSummary, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT id, organisation_id, title, end_date FROM events WHERE organisation_id = $1`, organisationID)
	if err != nil {
		return nil, translate(err, "list events")
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.EventSummary, error) {
		var e models.EventSummary
		err := row.Scan(&e.ID, &e.OrganisationID, &e.Title, &e.EndDate)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return list, nil
}

func (d *DB) GetOrganisation(ctx context.Context, id string) (models.OrganisationSummary, error) {
	var o models.OrganisationSummary
	err := d.Pool.QueryRow(ctx, `SELECT id, name FROM organisations WHERE id = $1`, id).Scan(&o.ID, &o.Name)
	if err != nil {
		return models.OrganisationSummary{}, translate(err, fmt.Sprintf("get organisation %s", id))
	}
	return o, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (models.UserSummary, error) {
	var u models.UserSummary
	err := d.Pool.QueryRow(ctx, `
	SELECT id, first_name, last_name, username, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email)
	if err != nil {
		return models.UserSummary{}, translate(err, fmt.Sprintf("get user %s", id))
	}
	return u, nil
}
