package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/ghst/internal/service"
)

type ReportHandler struct {
	s service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{s: s}
}

// CreateReport takes a multipart form with a title and the rendered PDF.
func (h *ReportHandler) CreateReport(c *fiber.Ctx) error {
	_, data, err := formFile(c, "file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	report, err := h.s.CreateReport(c.Context(), GetClientID(c), c.FormValue("title"), data)
	if err != nil {
		return serviceError(c, err, "Unable to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) CreateCampaign(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	campaign, err := h.s.CreateCampaign(c.Context(), GetClientID(c), body.Name)
	if err != nil {
		return serviceError(c, err, "Unable to create campaign")
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}
