package leaderboard

import (
	"errors"

	"backend-trailhunt/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:routeID", func(c *fiber.Ctx) error {
		entries, err := svc.Leaderboard(c.Context(), c.Params("routeID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})

	r.Get("/:routeID/me", authMiddleware, func(c *fiber.Ctx) error {
		entry, err := svc.Entry(c.Context(), c.Params("routeID"), auth.UserID(c))
		if errors.Is(err, ErrNotParticipant) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entry)
	})
}
