package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const AdminPasswordHeader = "X-Admin-Password"

var (
	ErrAdminNotConfigured = errors.New("admin not configured")
	ErrInvalidPassword    = errors.New("invalid password")
)

// AdminGate guards the import workflow with a single shared password. Only a
// bcrypt hash of the configured password is kept in memory.
type AdminGate struct {
	hash []byte
}

func NewAdminGate(password string) (*AdminGate, error) {
	if password == "" {
		return &AdminGate{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AdminGate{hash: hash}, nil
}

func (g *AdminGate) Configured() bool {
	return g != nil && len(g.hash) > 0
}

func (g *AdminGate) Check(password string) error {
	if !g.Configured() {
		return ErrAdminNotConfigured
	}
	if password == "" || bcrypt.CompareHashAndPassword(g.hash, []byte(password)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Middleware rejects requests without a valid admin password header. A gate
// without a configured password fails with 500, not 401.
func (g *AdminGate) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch err := g.Check(c.Get(AdminPasswordHeader)); {
		case errors.Is(err, ErrAdminNotConfigured):
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}

func RegisterAdminRoutes(r fiber.Router, gate *AdminGate) {
	r.Post("/auth", func(c *fiber.Ctx) error {
		var body struct {
			Password string `json:"password"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		switch err := gate.Check(body.Password); {
		case errors.Is(err, ErrAdminNotConfigured):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Admin not configured"})
		case err != nil:
			return c.JSON(fiber.Map{"success": false, "error": "Invalid password"})
		}
		return c.JSON(fiber.Map{"success": true})
	})
}
