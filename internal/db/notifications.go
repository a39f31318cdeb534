package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"volunteer-service/internal/models"
)

func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	query := `
	INSERT INTO notifications (id, organisation_id, message, created_at, is_read)
	VALUES ($1, $2, $3, $4, $5)`
	_, err := d.Pool.Exec(ctx, query, n.ID, n.OrganisationID, n.Message, n.CreatedAt, n.IsRead)
	return translate(err, "create notification")
}

func (d *DB) ListNotifications(ctx context.Context, organisationID string) ([]models.Notification, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT id, organisation_id, message, created_at, is_read
	FROM notifications
	WHERE organisation_id = $1
	ORDER BY created_at DESC`, organisationID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get notifications for organisation %s", organisationID))
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var n models.Notification
		err := row.Scan(&n.ID, &n.OrganisationID, &n.Message, &n.CreatedAt, &n.IsRead)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	return list, nil
}

// MarkNotificationRead flips one notification owned by organisationID to read.
func (d *DB) MarkNotificationRead(ctx context.Context, organisationID, id string) error {
	tag, err := d.Pool.Exec(ctx, `
	UPDATE notifications SET is_read = TRUE
	WHERE id = $1 AND organisation_id = $2`, id, organisationID)
	if err != nil {
		return translate(err, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead returns how many unread notifications were flipped.
func (d *DB) MarkAllNotificationsRead(ctx context.Context, organisationID string) (int64, error) {
	tag, err := d.Pool.Exec(ctx, `
	UPDATE notifications SET is_read = TRUE
	WHERE organisation_id = $1 AND is_read = FALSE`, organisationID)
	if err != nil {
		return 0, translate(err, "mark all notifications read")
	}
	return tag.RowsAffected(), nil
}

func (d *DB) CountUnreadNotifications(ctx context.Context, organisationID string) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx, `
	SELECT COUNT(*) FROM notifications
	WHERE organisation_id = $1 AND is_read = FALSE`, organisationID).Scan(&n)
	if err != nil {
		return 0, translate(err, "count unread notifications")
	}
	return n, nil
}
