package storage

import (
	"errors"
	"strings"

	"backend-trailhunt/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const maxPhotoBytes = 10 << 20

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/photos", authMiddleware, func(c *fiber.Ctx) error {
		challengeID := c.FormValue("challenge_id")
		if challengeID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "challenge_id required")
		}
		header, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "photo required")
		}
		if header.Size > maxPhotoBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "photo too large")
		}
		contentType := header.Header.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, "image/") {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, "photo must be an image")
		}

		file, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer file.Close()

		obj, err := svc.UploadChallengePhoto(c.Context(), auth.UserID(c), challengeID, file, contentType)
		if errors.Is(err, ErrNotConfigured) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
