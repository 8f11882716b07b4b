package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/ghst/internal/service"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	clientID := GetClientID(c)

	key, err := h.s.Create(c.Context(), clientID)
	if err != nil {
		return serviceError(c, err, "Unable to create API Key")
	}

	return c.Status(fiber.StatusCreated).JSON(key)
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context(), GetClientID(c))
	if err != nil {
		return serviceError(c, err, "Unable to list api keys")
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	keyID := c.QueryInt("id", 0)

	err := h.s.RemoveAPIKey(c.Context(), GetClientID(c), int64(keyID))
	if err != nil {
		return serviceError(c, err, "Unable to delete API Key")
	}

	return c.SendStatus(fiber.StatusOK)
}
