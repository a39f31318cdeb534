package services

import (
	"context"
	"errors"

	"volunteer-service/internal/apperr"
	"volunteer-service/internal/db"
	"volunteer-service/internal/models"
)

// SnapshotProjector copies display fields from live records into values that
// are stored inline and never refreshed.
type SnapshotProjector struct {
	users UserLookup
}

func NewSnapshotProjector(users UserLookup) *SnapshotProjector {
	return &SnapshotProjector{users: users}
}

// CaptureSubject reads the volunteer's profile as it is right now.
func (p *SnapshotProjector) CaptureSubject(ctx context.Context, userID string) (models.SubjectSnapshot, error) {
	u, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return models.SubjectSnapshot{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.SubjectSnapshot{}, err
	}
	return models.SubjectSnapshot{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
	}, nil
}
