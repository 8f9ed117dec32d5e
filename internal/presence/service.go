package presence

import (
	"context"
	"errors"
	"time"

	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/shared/geo"
)

const DefaultStaleAfter = 2 * time.Hour

var ErrInvalidLocation = errors.New("invalid location")

type Service struct {
	db         db.Querier
	staleAfter time.Duration
	now        func() time.Time
	onPublish  func()
}

// NewService builds the presence store. Positions are only served through
// ListOthers, which applies the caller's auth and the staleness window.
func NewService(q db.Querier, staleAfter time.Duration) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{db: q, staleAfter: staleAfter, now: time.Now}
}

// OnPublish registers fn to run after every stored location.
func (s *Service) OnPublish(fn func()) {
	s.onPublish = fn
}

// Publish stores the user's current position, replacing any previous one.
func (s *Service) Publish(ctx context.Context, userID string, u Update) (LiveLocation, error) {
	if !geo.ValidCoordinate(u.Lat, u.Lng) {
		return LiveLocation{}, ErrInvalidLocation
	}

	loc := LiveLocation{
		UserID:   userID,
		Lat:      u.Lat,
		Lng:      u.Lng,
		Heading:  u.Heading,
		Speed:    u.Speed,
		Accuracy: u.Accuracy,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO live_locations (user_id, latitude, longitude, heading, speed, accuracy, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		ON CONFLICT (user_id) DO UPDATE
		SET latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, heading=EXCLUDED.heading,
		    speed=EXCLUDED.speed, accuracy=EXCLUDED.accuracy, updated_at=now()
		RETURNING updated_at
	`, userID, u.Lat, u.Lng, u.Heading, u.Speed, u.Accuracy)
	if err := row.Scan(&loc.UpdatedAt); err != nil {
		return LiveLocation{}, err
	}

	if s.onPublish != nil {
		s.onPublish()
	}
	return loc, nil
}

// ListOthers returns everyone's fresh position except excludingUserID's.
func (s *Service) ListOthers(ctx context.Context, excludingUserID string) ([]LiveLocation, error) {
	cutoff := s.now().Add(-s.staleAfter)
	rows, err := s.db.Query(ctx, `
		SELECT l.user_id, u.username, l.latitude, l.longitude, l.heading, l.speed, l.accuracy, l.updated_at
		FROM live_locations l
		JOIN users u ON u.id = l.user_id
		WHERE l.user_id <> $1 AND l.updated_at >= $2
		ORDER BY l.updated_at DESC
	`, excludingUserID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LiveLocation{}
	for rows.Next() {
		var l LiveLocation
		if err := rows.Scan(&l.UserID, &l.Username, &l.Lat, &l.Lng, &l.Heading, &l.Speed, &l.Accuracy, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Prune deletes positions not refreshed within retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM live_locations WHERE updated_at < $1`, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
