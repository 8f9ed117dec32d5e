package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var routeCols = []string{"id", "name", "slug", "description", "start_date", "end_date", "is_active", "created_at"}

func TestActiveRoute(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, slug, description, start_date, end_date, is_active, created_at FROM routes WHERE is_active`).
		WillReturnRows(pgxmock.NewRows(routeCols).AddRow("route-1", "Hue Loop", "hue-loop", "", start, start.Add(8*time.Hour), true, start))
	mock.ExpectQuery(`FROM routes WHERE is_active`).
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	r, err := svc.Active(context.Background())
	if err != nil || r.ID != "route-1" || !r.IsActive {
		t.Fatalf("active: %v %+v", err, r)
	}
	if !r.Open(start.Add(time.Hour)) || r.Open(start.Add(-time.Minute)) {
		t.Fatalf("unexpected open window")
	}

	if _, err := svc.Active(context.Background()); !errors.Is(err, ErrNoActiveRoute) {
		t.Fatalf("expected no active route, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM routes WHERE id=\$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	if _, err := NewService(mock).Get(context.Background(), "missing"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateActiveDeactivatesOthers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE routes SET is_active=false WHERE is_active`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO routes`).
		WithArgs(pgxmock.AnyArg(), "Hue Imperial Loop", "hue-imperial-loop", "city tour", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	r, err := NewService(mock).CreateActive(context.Background(), Route{
		Name:        "Hue Imperial Loop",
		Description: "city tour",
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("create active: %v", err)
	}
	if r.Slug != "hue-imperial-loop" || !r.IsActive || r.ID == "" {
		t.Fatalf("unexpected route %+v", r)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateActiveRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE routes SET is_active=false`).WillReturnError(errRoute)
	mock.ExpectRollback()

	if _, err := NewService(mock).CreateActive(context.Background(), Route{Name: "x"}); !errors.Is(err, errRoute) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActivate(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE routes SET is_active=false WHERE is_active AND id<>\$1`).
		WithArgs("route-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE routes SET is_active=true WHERE id=\$1`).
		WithArgs("route-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE routes SET is_active=false`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE routes SET is_active=true`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	svc := NewService(mock)
	if err := svc.Activate(context.Background(), "route-2"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.Activate(context.Background(), "missing"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJoinActiveAndParticipants(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO route_participants`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT user_id, route_id, joined_at`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "route_id", "joined_at"}).
			AddRow("user-1", "route-1", time.Now()).
			AddRow("user-2", "route-1", time.Now()))

	svc := NewService(mock)
	if err := svc.JoinActive(context.Background(), "user-1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	participants, err := svc.Participants(context.Background(), "route-1")
	if err != nil || len(participants) != 2 {
		t.Fatalf("participants: %v %d", err, len(participants))
	}
}

func TestMapView(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT latitude, longitude FROM waypoints`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}).
			AddRow(16.46, 107.59).
			AddRow(16.48, 107.61))
	mock.ExpectQuery(`SELECT latitude, longitude FROM waypoints`).
		WithArgs("empty").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}))

	svc := NewService(mock)
	view, err := svc.MapView(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("map view: %v", err)
	}
	if view.Bounds == nil || view.Bounds.North != 16.48 || view.Bounds.West != 107.59 {
		t.Fatalf("unexpected bounds %+v", view.Bounds)
	}

	empty, err := svc.MapView(context.Background(), "empty")
	if err != nil || empty.Bounds != nil {
		t.Fatalf("expected empty view: %v %+v", err, empty)
	}
}

var errRoute = errors.New("route error")

var statsCols = []string{"routes", "waypoints", "challenges", "users", "photos", "active_route_id"}

func TestStats(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	active := "route-1"
	mock.ExpectQuery(`SELECT count\(\*\) FROM routes`).
		WillReturnRows(pgxmock.NewRows(statsCols).AddRow(2, 14, 6, 31, 9, &active))
	mock.ExpectQuery(`SELECT count\(\*\) FROM routes`).
		WillReturnRows(pgxmock.NewRows(statsCols).AddRow(0, 0, 0, 0, 0, (*string)(nil)))

	svc := NewService(mock)
	st, err := svc.Stats(context.Background())
	if err != nil || st.Waypoints != 14 || st.Photos != 9 || st.ActiveRouteID == nil || *st.ActiveRouteID != "route-1" {
		t.Fatalf("stats: %v %+v", err, st)
	}
	st, err = svc.Stats(context.Background())
	if err != nil || st.Routes != 0 || st.ActiveRouteID != nil {
		t.Fatalf("empty stats: %v %+v", err, st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
