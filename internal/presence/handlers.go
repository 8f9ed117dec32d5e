package presence

import (
	"errors"

	"backend-trailhunt/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Update
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		loc, err := svc.Publish(c.Context(), auth.UserID(c), req)
		if errors.Is(err, ErrInvalidLocation) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(loc)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		locs, err := svc.ListOthers(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(locs)
	})
}
