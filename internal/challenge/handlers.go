package challenge

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, adminMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		var (
			chs []Challenge
			err error
		)
		if routeID := c.Query("route_id"); routeID != "" {
			chs, err = svc.ListByRoute(c.Context(), routeID)
		} else {
			chs, err = svc.ListActive(c.Context())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(chs)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		ch, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrChallengeNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(ch)
	})

	r.Delete("/:id", adminMiddleware, func(c *fiber.Ctx) error {
		err := svc.Delete(c.Context(), c.Params("id"))
		if errors.Is(err, ErrChallengeNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
