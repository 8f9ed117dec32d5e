package importer

import (
	"bytes"
	"errors"
	"io"

	"backend-trailhunt/internal/route"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, adminMiddleware fiber.Handler) {
	r.Post("/route", adminMiddleware, func(c *fiber.Ctx) error {
		src, err := upload(c)
		if err != nil {
			return err
		}
		created, err := svc.ImportRoute(c.Context(), src)
		if err != nil {
			return importError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Post("/waypoints", adminMiddleware, func(c *fiber.Ctx) error {
		src, err := upload(c)
		if err != nil {
			return err
		}
		summary, err := svc.ImportWaypoints(c.Context(), src)
		if err != nil {
			return importError(c, err)
		}
		return c.JSON(summary)
	})

	r.Post("/challenges", adminMiddleware, func(c *fiber.Ctx) error {
		src, err := upload(c)
		if err != nil {
			return err
		}
		summary, err := svc.ImportChallenges(c.Context(), src)
		if err != nil {
			return importError(c, err)
		}
		return c.JSON(summary)
	})
}

// upload returns the multipart "file" part, or the raw body for text/csv posts.
func upload(c *fiber.Ctx) (io.Reader, error) {
	if header, err := c.FormFile("file"); err == nil {
		f, err := header.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return bytes.NewReader(data), nil
	}
	body := c.Body()
	if len(body) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "csv file required")
	}
	return bytes.NewReader(body), nil
}

func importError(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "errors": verr.Errors})
	case errors.Is(err, route.ErrNoActiveRoute):
		return fiber.NewError(fiber.StatusConflict, "no active route, import a route first")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
