package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/ghst/configs"
	"github.com/maheshrc27/ghst/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cfg *config.Config
}

func NewPlatformHandler(ps service.PlatformService, cfg *config.Config) *PlatformHandler {
	return &PlatformHandler{ps: ps, cfg: cfg}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL, err := h.ps.GetAuthURL(c.Params("platform"), GetClientID(c), GetUserID(c))
	if err != nil {
		return serviceError(c, err, "Unable to start connection")
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	target := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)

	if reason := c.Query("error"); reason != "" {
		return c.Redirect(target+"?error="+url.QueryEscape(reason), fiber.StatusTemporaryRedirect)
	}

	_, err := h.ps.Callback(c.Context(), c.Params("platform"), c.Query("code"), c.Query("state"))
	if err != nil {
		return c.Redirect(target+"?error=connection_failed", fiber.StatusTemporaryRedirect)
	}

	return c.Redirect(target, fiber.StatusTemporaryRedirect)
}
