package handlers

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/queue"
	"github.com/maheshrc27/ghst/internal/service"
	"github.com/maheshrc27/ghst/internal/transfer"
)

type PostHandler struct {
	s         service.PostService
	scheduler queue.Scheduler
}

// NewPostHandler takes a nil scheduler when no task queue is configured; the
// cron sweep then publishes due posts on its own.
func NewPostHandler(service service.PostService, scheduler queue.Scheduler) *PostHandler {
	return &PostHandler{s: service, scheduler: scheduler}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, delay, err := h.s.CreatePost(c.Context(), GetClientID(c), &pc)
	if err != nil {
		return serviceError(c, err, "Unable to create post")
	}

	if post.Status == models.PostStatusScheduled {
		h.enqueue(c, post.ID, delay)
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.PostCreated{
		ID:     post.ID,
		Status: string(post.Status),
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	postID := c.QueryInt("id", 0)

	var ps transfer.PostSchedule
	if err := c.BodyParser(&ps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}
	if err := transfer.Validate(&ps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	delay, err := h.s.Schedule(c.Context(), GetClientID(c), int64(postID), ps.ScheduledAt)
	if err != nil {
		return serviceError(c, err, "Unable to schedule post")
	}
	h.enqueue(c, int64(postID), delay)

	return c.Status(fiber.StatusOK).JSON(transfer.PostCreated{
		ID:     int64(postID),
		Status: string(models.PostStatusScheduled),
	})
}

// enqueue failures are logged only: the post is stored as scheduled and the
// cron sweep picks it up when due.
func (h *PostHandler) enqueue(c *fiber.Ctx, postID int64, delay time.Duration) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.SchedulePost(c.Context(), postID, delay); err != nil {
		slog.Error("error scheduling post", "post_id", postID, "error", err.Error())
	}
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	clientID := GetClientID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), clientID)
		if err != nil {
			return serviceError(c, err, "Unable to get post")
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), clientID)
	if err != nil {
		return serviceError(c, err, "Unable to list posts")
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	history, err := h.s.History(c.Context(), GetClientID(c), int64(c.QueryInt("id", 0)))
	if err != nil {
		return serviceError(c, err, "Unable to get publish history")
	}
	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) RetryQueue(c *fiber.Ctx) error {
	status := models.RetryStatus(c.Query("status"))

	entries, err := h.s.RetryQueue(c.Context(), GetClientID(c), status)
	if err != nil {
		return serviceError(c, err, "Unable to list retry queue")
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), GetClientID(c), int64(postID))
	if err != nil {
		return serviceError(c, err, "Unable to remove post")
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) UploadMedia(c *fiber.Ctx) error {
	name, data, err := formFile(c, "file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	asset, err := h.s.UploadMedia(c.Context(), GetClientID(c), name, data)
	if err != nil {
		return serviceError(c, err, "Unable to upload file")
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.MediaUploaded{
		ID:       asset.ID,
		FileURL:  asset.FileURL,
		FileType: asset.FileType,
	})
}

func formFile(c *fiber.Ctx, field string) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}
