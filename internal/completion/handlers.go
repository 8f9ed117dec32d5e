package completion

import (
	"errors"

	"backend-trailhunt/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type waypointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type challengeRequest struct {
	PhotoURL string `json:"photo_url"`
}

func RegisterRoutes(r fiber.Router, engine *Engine, authMiddleware fiber.Handler) {
	r.Post("/waypoints/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req waypointRequest
		if err := c.BodyParser(&req); err != nil || req.Lat == nil || req.Lng == nil {
			return respond(c, failure(CodeValidationFailure, "lat and lng required"))
		}
		return respond(c, engine.CompleteWaypoint(c.Context(), auth.UserID(c), c.Params("id"), *req.Lat, *req.Lng))
	})

	r.Post("/challenges/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req challengeRequest
		if err := c.BodyParser(&req); err != nil {
			return respond(c, failure(CodeValidationFailure, err.Error()))
		}
		return respond(c, engine.CompleteChallenge(c.Context(), auth.UserID(c), c.Params("id"), req.PhotoURL))
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		routeID := c.Query("route_id")
		if routeID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "route_id required")
		}
		userID := auth.UserID(c)
		wps, err := engine.CompletedWaypointIDs(c.Context(), userID, routeID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		chs, err := engine.CompletedChallengeIDs(c.Context(), userID, routeID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(Progress{WaypointIDs: wps, ChallengeIDs: chs})
	})
}

func RegisterGalleryRoutes(r fiber.Router, engine *Engine, adminMiddleware fiber.Handler) {
	r.Get("/:routeID", func(c *fiber.Ctx) error {
		items, err := engine.Gallery(c.Context(), c.Params("routeID"), c.QueryInt("limit", 50))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(items)
	})

	r.Delete("/:completionID", adminMiddleware, func(c *fiber.Ctx) error {
		err := engine.RemoveChallengeCompletion(c.Context(), c.Params("completionID"))
		if errors.Is(err, ErrCompletionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func respond(c *fiber.Ctx, res Result) error {
	return c.Status(res.HTTPStatus()).JSON(res)
}
