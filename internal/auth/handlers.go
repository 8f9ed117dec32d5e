package auth

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// RouteJoiner enrolls a user in the currently active route after login.
type RouteJoiner interface {
	JoinActive(ctx context.Context, userID string) error
}

func RegisterRoutes(r fiber.Router, svc *Service, joiner RouteJoiner, authMiddleware fiber.Handler) {
	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, tokens, err := svc.Login(c.Context(), req)
		if err != nil {
			if isValidationError(err) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to register, please try again")
		}
		if joiner != nil {
			if err := joiner.JoinActive(c.Context(), user.ID); err != nil {
				log.Printf("join active route for %s: %v", user.ID, err)
			}
		}
		return c.JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		user, err := svc.GetUser(c.Context(), UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return c.JSON(user)
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrUsernameRequired) ||
		errors.Is(err, ErrUsernameTooShort) ||
		errors.Is(err, ErrUsernameCharset)
}
