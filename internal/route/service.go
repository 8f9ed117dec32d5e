package route

import (
	"context"
	"errors"
	"fmt"

	"backend-trailhunt/internal/db"
	"backend-trailhunt/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNoActiveRoute = errors.New("no active route")
	ErrRouteNotFound = errors.New("route not found")
)

type Service struct {
	db db.TxQuerier
}

func NewService(db db.TxQuerier) *Service {
	return &Service{db: db}
}

const routeColumns = `id, name, slug, description, start_date, end_date, is_active, created_at`

func scanRoute(row pgx.Row) (Route, error) {
	var r Route
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Description, &r.StartDate, &r.EndDate, &r.IsActive, &r.CreatedAt)
	return r, err
}

func (s *Service) Active(ctx context.Context) (Route, error) {
	r, err := scanRoute(s.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE is_active`))
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrNoActiveRoute
	}
	return r, err
}

func (s *Service) Get(ctx context.Context, id string) (Route, error) {
	r, err := scanRoute(s.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrRouteNotFound
	}
	return r, err
}

// CreateActive inserts a route and makes it the only active one. Deactivation
// of the previous route and the insert commit together.
func (s *Service) CreateActive(ctx context.Context, input Route) (Route, error) {
	input.ID = uuid.NewString()
	input.Slug = slug.Make(input.Name)
	input.IsActive = true

	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE routes SET is_active=false WHERE is_active`); err != nil {
			return fmt.Errorf("deactivate routes: %w", err)
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO routes (id, name, slug, description, start_date, end_date, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,true)
			RETURNING created_at
		`, input.ID, input.Name, input.Slug, input.Description, input.StartDate, input.EndDate)
		return row.Scan(&input.CreatedAt)
	})
	if err != nil {
		return Route{}, err
	}
	return input, nil
}

// Activate switches the active route to id atomically.
func (s *Service) Activate(ctx context.Context, id string) error {
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE routes SET is_active=false WHERE is_active AND id<>$1`, id); err != nil {
			return fmt.Errorf("deactivate routes: %w", err)
		}
		tag, err := tx.Exec(ctx, `UPDATE routes SET is_active=true WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("activate route: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRouteNotFound
		}
		return nil
	})
}

// JoinActive enrolls the user in whichever route is active; already enrolled
// users and the no-active-route case are no-ops.
func (s *Service) JoinActive(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_participants (user_id, route_id)
		SELECT $1, id FROM routes WHERE is_active
		ON CONFLICT (user_id, route_id) DO NOTHING
	`, userID)
	return err
}

func (s *Service) Participants(ctx context.Context, routeID string) ([]Participant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, route_id, joined_at
		FROM route_participants WHERE route_id=$1
		ORDER BY joined_at
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.RouteID, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MapView returns the center and bounding box of a route's waypoints.
func (s *Service) MapView(ctx context.Context, routeID string) (MapView, error) {
	rows, err := s.db.Query(ctx, `SELECT latitude, longitude FROM waypoints WHERE route_id=$1`, routeID)
	if err != nil {
		return MapView{}, err
	}
	defer rows.Close()

	var points []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Lat, &p.Lng); err != nil {
			return MapView{}, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return MapView{}, err
	}

	view := MapView{Center: geo.Center(points)}
	if b, ok := geo.BoundsOf(points); ok {
		view.Bounds = &b
	}
	return view, nil
}

// Stats counts the rows behind the admin dashboard in one round trip.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM routes),
			(SELECT count(*) FROM waypoints),
			(SELECT count(*) FROM challenges),
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM challenge_completions),
			(SELECT id::text FROM routes WHERE is_active LIMIT 1)
	`).Scan(&st.Routes, &st.Waypoints, &st.Challenges, &st.Users, &st.Photos, &st.ActiveRouteID)
	return st, err
}
