package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAdminGateCheck(t *testing.T) {
	gate, err := NewAdminGate("hunter2")
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	if !gate.Configured() {
		t.Fatalf("expected configured gate")
	}
	if err := gate.Check("hunter2"); err != nil {
		t.Fatalf("expected valid password: %v", err)
	}
	if err := gate.Check("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := gate.Check(""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password for empty input, got %v", err)
	}

	empty, _ := NewAdminGate("")
	if err := empty.Check("anything"); !errors.Is(err, ErrAdminNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestAdminMiddleware(t *testing.T) {
	gate, _ := NewAdminGate("hunter2")
	unconfigured, _ := NewAdminGate("")

	app := fiber.New()
	app.Get("/guarded", gate.Middleware(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/broken", unconfigured.Middleware(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(AdminPasswordHeader, "hunter2")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/broken", nil)
	req.Header.Set(AdminPasswordHeader, "hunter2")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected config failure, got %d", resp.StatusCode)
	}
}

func TestAdminAuthRoute(t *testing.T) {
	gate, _ := NewAdminGate("hunter2")
	app := fiber.New()
	RegisterAdminRoutes(app.Group("/admin"), gate)

	post := func(password string) (int, map[string]any) {
		body, _ := json.Marshal(map[string]string{"password": password})
		req := httptest.NewRequest(http.MethodPost, "/admin/auth", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		raw, _ := io.ReadAll(resp.Body)
		out := map[string]any{}
		_ = json.Unmarshal(raw, &out)
		return resp.StatusCode, out
	}

	status, out := post("hunter2")
	if status != http.StatusOK || out["success"] != true {
		t.Fatalf("expected success, got %d %v", status, out)
	}
	status, out = post("nope")
	if status != http.StatusOK || out["success"] != false {
		t.Fatalf("expected failure payload, got %d %v", status, out)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/auth", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}

	unconfigured, _ := NewAdminGate("")
	app2 := fiber.New()
	RegisterAdminRoutes(app2.Group("/admin"), unconfigured)
	req = httptest.NewRequest(http.MethodPost, "/admin/auth", bytes.NewReader([]byte(`{"password":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app2.Test(req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 when admin password missing")
	}
}
