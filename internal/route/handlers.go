package route

import (
	"errors"

	"backend-trailhunt/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, adminMiddleware fiber.Handler) {
	r.Get("/active", func(c *fiber.Ctx) error {
		route, err := svc.Active(c.Context())
		if err != nil {
			return routeError(err)
		}
		return c.JSON(route)
	})

	r.Get("/active/map", func(c *fiber.Ctx) error {
		route, err := svc.Active(c.Context())
		if err != nil {
			return routeError(err)
		}
		view, err := svc.MapView(c.Context(), route.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(view)
	})

	r.Post("/active/join", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.JoinActive(c.Context(), auth.UserID(c)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		route, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return routeError(err)
		}
		return c.JSON(route)
	})

	r.Get("/:id/participants", func(c *fiber.Ctx) error {
		participants, err := svc.Participants(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(participants)
	})

	r.Post("/:id/activate", adminMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Activate(c.Context(), c.Params("id")); err != nil {
			return routeError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware fiber.Handler) {
	r.Get("/stats", adminMiddleware, func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(st)
	})
}

func routeError(err error) error {
	if errors.Is(err, ErrNoActiveRoute) || errors.Is(err, ErrRouteNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
