package completion

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(c *fiber.Ctx) error {
	c.Locals("user_id", "user-1")
	return c.Next()
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (*http.Response, Result) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, res
}

func TestCompletionHandlers(t *testing.T) {
	mock := newMock(t)
	expectWaypointLookup(mock, 15)
	expectWaypointInsert(mock, "user-1", 16.46371, 107.59091).
		WillReturnRows(pgxmock.NewRows([]string{"completed_at"}).AddRow(time.Now()))
	expectWaypointLookup(mock, 15)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("user-1", "wp-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	app := fiber.New()
	RegisterRoutes(app.Group("/completions"), NewEngine(mock, 15), asUser)

	resp, res := postJSON(t, app, "/completions/waypoints/wp-1", `{"lat":16.46371,"lng":107.59091}`)
	if resp.StatusCode != http.StatusOK || !res.Success || res.PointsEarned != 10 {
		t.Fatalf("unexpected success response %d %+v", resp.StatusCode, res)
	}

	resp, res = postJSON(t, app, "/completions/waypoints/wp-1", `{"lat":16.4638,"lng":107.5910}`)
	if resp.StatusCode != http.StatusUnprocessableEntity || res.Code != CodeTooFar {
		t.Fatalf("unexpected too far response %d %+v", resp.StatusCode, res)
	}

	resp, res = postJSON(t, app, "/completions/waypoints/wp-1", `{"lat":16.4638}`)
	if resp.StatusCode != http.StatusBadRequest || res.Code != CodeValidationFailure {
		t.Fatalf("unexpected validation response %d %+v", resp.StatusCode, res)
	}

	resp, res = postJSON(t, app, "/completions/challenges/ch-1", `{"photo_url":"nope"}`)
	if resp.StatusCode != http.StatusBadRequest || res.Code != CodeValidationFailure {
		t.Fatalf("unexpected challenge response %d %+v", resp.StatusCode, res)
	}
}

func TestCompletionMineRequiresRoute(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/completions"), NewEngine(newMock(t), 15), asUser)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/completions/mine", nil))
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestGalleryHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM challenge_completions cc`).WithArgs("route-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "username", "challenge_id", "title", "photo_url", "points_awarded", "completed_at"}))

	app := fiber.New()
	RegisterGalleryRoutes(app.Group("/gallery"), NewEngine(mock, 15), passThrough)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/gallery/route-1?limit=10", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("gallery status: %v", err)
	}
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func TestGalleryDeleteHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`DELETE FROM challenge_completions WHERE id=\$1`).WithArgs("cc-1").
		WillReturnRows(pgxmock.NewRows([]string{"route_id", "photo_url"}).AddRow("route-1", "https://cdn/u/p.jpg"))
	mock.ExpectQuery(`DELETE FROM challenge_completions WHERE id=\$1`).WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	photos := &fakePhotos{}
	app := fiber.New()
	RegisterGalleryRoutes(app.Group("/gallery"), NewEngine(mock, 15, WithPhotoRemover(photos)), passThrough)

	checks := []struct {
		path   string
		status int
	}{
		{"/gallery/cc-1", http.StatusNoContent},
		{"/gallery/missing", http.StatusNotFound},
	}
	for _, c := range checks {
		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, c.path, nil))
		if err != nil || resp.StatusCode != c.status {
			t.Fatalf("DELETE %s: got %d want %d (%v)", c.path, resp.StatusCode, c.status, err)
		}
	}
	if len(photos.urls) != 1 || photos.urls[0] != "https://cdn/u/p.jpg" {
		t.Fatalf("unexpected photo deletes %v", photos.urls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGalleryDeleteRequiresAdmin(t *testing.T) {
	app := fiber.New()
	deny := func(c *fiber.Ctx) error { return fiber.ErrUnauthorized }
	RegisterGalleryRoutes(app.Group("/gallery"), NewEngine(nil, 15), deny)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/gallery/cc-1", nil))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}
