package waypoint

import (
	"context"
	"errors"
	"fmt"
	"math"

	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrWaypointNotFound = errors.New("waypoint not found")
	ErrInvalidWaypoint  = errors.New("invalid waypoint")
)

type Service struct {
	db       db.TxQuerier
	onChange func(ctx context.Context, routeID string)
}

func NewService(db db.TxQuerier) *Service {
	return &Service{db: db}
}

// OnChange registers fn to run after a waypoint is edited or deleted, since
// either can move the route's standings.
func (s *Service) OnChange(fn func(ctx context.Context, routeID string)) {
	s.onChange = fn
}

func (s *Service) changed(ctx context.Context, routeID string) {
	if s.onChange != nil {
		s.onChange(ctx, routeID)
	}
}

const waypointColumns = `id, route_id, name, description, latitude, longitude, points, icon,
	category, directions_note, sort_order, completion_radius_m, created_at`

func scanWaypoint(row pgx.Row) (Waypoint, error) {
	var wp Waypoint
	err := row.Scan(&wp.ID, &wp.RouteID, &wp.Name, &wp.Description, &wp.Lat, &wp.Lng, &wp.Points, &wp.Icon,
		&wp.Category, &wp.DirectionsNote, &wp.SortOrder, &wp.CompletionRadiusM, &wp.CreatedAt)
	return wp, err
}

func (s *Service) GetWaypoint(ctx context.Context, id string) (Waypoint, error) {
	wp, err := scanWaypoint(s.db.QueryRow(ctx, `SELECT `+waypointColumns+` FROM waypoints WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Waypoint{}, ErrWaypointNotFound
	}
	return wp, err
}

// ListByRoute returns the waypoints of a route in display order.
func (s *Service) ListByRoute(ctx context.Context, routeID string) ([]Waypoint, error) {
	return s.list(ctx, `SELECT `+waypointColumns+` FROM waypoints WHERE route_id=$1 ORDER BY sort_order, name`, routeID)
}

func (s *Service) ListActive(ctx context.Context) ([]Waypoint, error) {
	return s.list(ctx, `
		SELECT `+waypointColumns+` FROM waypoints
		WHERE route_id = (SELECT id FROM routes WHERE is_active)
		ORDER BY sort_order, name
	`)
}

func (s *Service) list(ctx context.Context, sql string, args ...any) ([]Waypoint, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Waypoint{}
	for rows.Next() {
		wp, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wp)
	}
	return out, rows.Err()
}

// UpdateWaypoint applies the non-nil fields of patch.
func (s *Service) UpdateWaypoint(ctx context.Context, id string, patch Patch) (Waypoint, error) {
	wp, err := s.GetWaypoint(ctx, id)
	if err != nil {
		return Waypoint{}, err
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return Waypoint{}, fmt.Errorf("%w: name is required", ErrInvalidWaypoint)
		}
		wp.Name = *patch.Name
	}
	if patch.Description != nil {
		wp.Description = *patch.Description
	}
	if patch.Lat != nil {
		wp.Lat = *patch.Lat
	}
	if patch.Lng != nil {
		wp.Lng = *patch.Lng
	}
	if !geo.ValidCoordinate(wp.Lat, wp.Lng) {
		return Waypoint{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidWaypoint)
	}
	if patch.Points != nil {
		if *patch.Points <= 0 {
			return Waypoint{}, fmt.Errorf("%w: points must be positive", ErrInvalidWaypoint)
		}
		wp.Points = *patch.Points
	}
	if patch.Icon != nil {
		if !ValidIcon(*patch.Icon) {
			return Waypoint{}, fmt.Errorf("%w: unknown icon %q", ErrInvalidWaypoint, *patch.Icon)
		}
		wp.Icon = *patch.Icon
	}
	if patch.Category != nil {
		wp.Category = patch.Category
	}
	if patch.DirectionsNote != nil {
		wp.DirectionsNote = patch.DirectionsNote
	}
	if patch.CompletionRadiusM != nil {
		if r := *patch.CompletionRadiusM; r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return Waypoint{}, fmt.Errorf("%w: completion radius must be positive", ErrInvalidWaypoint)
		}
		wp.CompletionRadiusM = patch.CompletionRadiusM
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE waypoints
		SET name=$2, description=$3, latitude=$4, longitude=$5, points=$6, icon=$7,
		    category=$8, directions_note=$9, completion_radius_m=$10
		WHERE id=$1
	`, wp.ID, wp.Name, wp.Description, wp.Lat, wp.Lng, wp.Points, wp.Icon,
		wp.Category, wp.DirectionsNote, wp.CompletionRadiusM)
	if err != nil {
		return Waypoint{}, err
	}
	if tag.RowsAffected() == 0 {
		return Waypoint{}, ErrWaypointNotFound
	}
	s.changed(ctx, wp.RouteID)
	return wp, nil
}

// DeleteWaypoint removes a waypoint; its completions cascade.
func (s *Service) DeleteWaypoint(ctx context.Context, id string) error {
	var routeID string
	err := s.db.QueryRow(ctx, `DELETE FROM waypoints WHERE id=$1 RETURNING route_id`, id).Scan(&routeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWaypointNotFound
	}
	if err != nil {
		return err
	}
	s.changed(ctx, routeID)
	return nil
}

// ReplaceForRoute deletes the route's waypoints and inserts wps in one
// transaction. Existing completions of deleted waypoints cascade.
func (s *Service) ReplaceForRoute(ctx context.Context, routeID string, wps []Waypoint) (int, error) {
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM waypoints WHERE route_id=$1`, routeID); err != nil {
			return fmt.Errorf("clear waypoints: %w", err)
		}
		for i := range wps {
			wp := &wps[i]
			wp.ID = uuid.NewString()
			wp.RouteID = routeID
			_, err := tx.Exec(ctx, `
				INSERT INTO waypoints (id, route_id, name, description, latitude, longitude, points, icon,
					category, directions_note, sort_order, completion_radius_m)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			`, wp.ID, wp.RouteID, wp.Name, wp.Description, wp.Lat, wp.Lng, wp.Points, wp.Icon,
				wp.Category, wp.DirectionsNote, wp.SortOrder, wp.CompletionRadiusM)
			if err != nil {
				return fmt.Errorf("insert waypoint %q: %w", wp.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(wps), nil
}
