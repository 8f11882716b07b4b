package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Ticker interface {
	Tick(ctx context.Context) error
}

// CronHandler lets an external scheduler trigger a publisher tick over HTTP.
// It is disabled when no secret is configured.
type CronHandler struct {
	job    Ticker
	secret string
}

func NewCronHandler(job Ticker, secret string) *CronHandler {
	return &CronHandler{job: job, secret: secret}
}

func (h *CronHandler) Run(c *fiber.Ctx) error {
	given := c.Query("secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		slog.Info("cron trigger rejected", "ip", c.IP())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden",
		})
	}

	start := time.Now()
	if err := h.job.Tick(c.Context()); err != nil {
		slog.Error("cron tick failed", "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Tick failed",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "ok",
		"duration": time.Since(start).String(),
	})
}
