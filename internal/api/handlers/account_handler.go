package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/ghst/internal/service"
	"github.com/maheshrc27/ghst/internal/transfer"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(s service.AccountService) *AccountHandler {
	return &AccountHandler{s: s}
}

func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	var conn transfer.AccountConnection
	if err := c.BodyParser(&conn); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	acc, err := h.s.Connect(c.Context(), GetClientID(c), &conn)
	if err != nil {
		return serviceError(c, err, "Unable to connect account")
	}
	return c.Status(fiber.StatusCreated).JSON(acc)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.List(c.Context(), GetClientID(c))
	if err != nil {
		return serviceError(c, err, "Failed to fetch social accounts")
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) DeactivateAccount(c *fiber.Ctx) error {
	accountID := c.QueryInt("id", 0)

	if err := h.s.Deactivate(c.Context(), GetClientID(c), int64(accountID)); err != nil {
		return serviceError(c, err, "Unable to deactivate social account")
	}
	return c.SendStatus(fiber.StatusOK)
}
