package route

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func passThrough(c *fiber.Ctx) error { return c.Next() }

func TestRouteHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM routes WHERE is_active`).
		WillReturnRows(pgxmock.NewRows(routeCols).AddRow("route-1", "Loop", "loop", "", now, now.Add(time.Hour), true, now))
	mock.ExpectQuery(`FROM routes WHERE is_active`).
		WillReturnRows(pgxmock.NewRows(routeCols).AddRow("route-1", "Loop", "loop", "", now, now.Add(time.Hour), true, now))
	mock.ExpectQuery(`SELECT latitude, longitude FROM waypoints`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}).AddRow(16.46, 107.59))
	mock.ExpectQuery(`FROM routes WHERE id=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE routes SET is_active=false`).WithArgs("route-1").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE routes SET is_active=true`).WithArgs("route-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO route_participants`).WithArgs("user-1").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	app := fiber.New()
	asUser := func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	}
	RegisterRoutes(app.Group("/routes"), NewService(mock), asUser, passThrough)

	checks := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/routes/active", http.StatusOK},
		{http.MethodGet, "/routes/active/map", http.StatusOK},
		{http.MethodGet, "/routes/missing", http.StatusNotFound},
		{http.MethodPost, "/routes/route-1/activate", http.StatusNoContent},
		{http.MethodPost, "/routes/active/join", http.StatusNoContent},
	}
	for _, c := range checks {
		req := httptest.NewRequest(c.method, c.path, nil)
		resp, err := app.Test(req)
		if err != nil || resp.StatusCode != c.status {
			t.Fatalf("%s %s: got %v %v want %d", c.method, c.path, resp.StatusCode, err, c.status)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteHandlersNoActive(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM routes WHERE is_active`).WillReturnError(pgx.ErrNoRows)

	app := fiber.New()
	RegisterRoutes(app.Group("/routes"), NewService(mock), passThrough, passThrough)

	req := httptest.NewRequest(http.MethodGet, "/routes/active", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}

func TestAdminStatsHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM routes`).
		WillReturnRows(pgxmock.NewRows(statsCols).AddRow(1, 3, 2, 5, 4, (*string)(nil)))
	mock.ExpectQuery(`SELECT count\(\*\) FROM routes`).
		WillReturnError(errors.New("db down"))

	app := fiber.New()
	RegisterAdminRoutes(app.Group("/admin"), NewService(mock), passThrough)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status: %v", err)
	}
	var st Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Users != 5 || st.Photos != 4 || st.ActiveRouteID != nil {
		t.Fatalf("unexpected stats %+v", st)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on query error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdminStatsRequiresAdmin(t *testing.T) {
	app := fiber.New()
	deny := func(c *fiber.Ctx) error { return fiber.ErrUnauthorized }
	RegisterAdminRoutes(app.Group("/admin"), NewService(nil), deny)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}
