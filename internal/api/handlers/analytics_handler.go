package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/ghst/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: s}
}

func (h *AnalyticsHandler) PostAnalytics(c *fiber.Ctx) error {
	rows, err := h.s.PostAnalytics(c.Context(), GetClientID(c), int64(c.QueryInt("post_id", 0)))
	if err != nil {
		return serviceError(c, err, "Unable to get post analytics")
	}
	return c.Status(fiber.StatusOK).JSON(rows)
}

func (h *AnalyticsHandler) FollowerHistory(c *fiber.Ctx) error {
	accountID := int64(c.QueryInt("account_id", 0))
	days := c.QueryInt("days", 0)

	rows, err := h.s.FollowerHistory(c.Context(), GetClientID(c), accountID, days)
	if err != nil {
		return serviceError(c, err, "Unable to get follower history")
	}
	return c.Status(fiber.StatusOK).JSON(rows)
}
