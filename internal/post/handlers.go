package post

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		views, err := svc.ListViews(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(views)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text required")
		}
		created, err := svc.CreatePost(c.Context(), requesterID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		view, err := svc.DetailView(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(view)
	})

	update := func(c *fiber.Ctx) error {
		var req UpdateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Text != nil && *req.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text cannot be empty")
		}
		updated, err := svc.UpdatePost(c.Context(), c.Params("id"), requesterID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(updated)
	}
	r.Patch("/:id", authMiddleware, update)
	r.Put("/:id", authMiddleware, update)

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeletePost(c.Context(), c.Params("id"), requesterID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/comment", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil || body.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text required")
		}
		comment, err := svc.AddComment(c.Context(), c.Params("id"), requesterID(c), body.Text)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Post("/:id/like", authMiddleware, func(c *fiber.Ctx) error {
		liked, err := svc.ToggleLike(c.Context(), c.Params("id"), requesterID(c))
		if err != nil {
			return httpError(err)
		}
		status := "unliked"
		if liked {
			status = "liked"
		}
		return c.JSON(fiber.Map{"status": status})
	})

	r.Post("/:id/images", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			ImageURLs []string `json:"image_urls"`
		}
		if err := c.BodyParser(&body); err != nil || len(body.ImageURLs) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "image_urls required")
		}
		images, err := svc.AddImages(c.Context(), c.Params("id"), requesterID(c), body.ImageURLs)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(images)
	})

	r.Delete("/:id/images", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteAllImages(c.Context(), c.Params("id"), requesterID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/:id/images/:imageId", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteImage(c.Context(), c.Params("id"), c.Params("imageId"), requesterID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// requesterID is the identity the JWT middleware stored in locals. Author
// identity always comes from the token, never from the request body.
func requesterID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func httpError(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, "not the author")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
