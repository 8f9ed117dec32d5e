package waypoint

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, adminMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		var (
			wps []Waypoint
			err error
		)
		if routeID := c.Query("route_id"); routeID != "" {
			wps, err = svc.ListByRoute(c.Context(), routeID)
		} else {
			wps, err = svc.ListActive(c.Context())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(wps)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		wp, err := svc.GetWaypoint(c.Context(), c.Params("id"))
		if err != nil {
			return waypointError(err)
		}
		return c.JSON(wp)
	})

	r.Put("/:id", adminMiddleware, func(c *fiber.Ctx) error {
		var req Patch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		wp, err := svc.UpdateWaypoint(c.Context(), c.Params("id"), req)
		if err != nil {
			return waypointError(err)
		}
		return c.JSON(wp)
	})

	r.Delete("/:id", adminMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteWaypoint(c.Context(), c.Params("id")); err != nil {
			return waypointError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func waypointError(err error) error {
	switch {
	case errors.Is(err, ErrWaypointNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidWaypoint):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
