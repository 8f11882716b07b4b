package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/service"
	"github.com/maheshrc27/ghst/internal/transfer"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"date":      formatDate,
	"excerpt":   excerpt,
	"platforms": joinPlatforms,
}).ParseFS(templateFS, "templates/*.html"))

func formatDate(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("Jan 2, 2006")
	case *time.Time:
		if t != nil {
			return t.UTC().Format("Jan 2, 2006 15:04 MST")
		}
	}
	return ""
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= 120 {
		return s
	}
	return string(r[:120]) + "…"
}

func joinPlatforms(ps models.PlatformList) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// ShareHandler serves the public share pages and the authenticated share
// management endpoints.
type ShareHandler struct {
	s        service.ShareService
	sessions *session.Store
}

func NewShareHandler(s service.ShareService, sessions *session.Store) *ShareHandler {
	return &ShareHandler{s: s, sessions: sessions}
}

func sessionKey(shareID int64) string {
	return fmt.Sprintf("share_auth_%d", shareID)
}

func render(c *fiber.Ctx, status int, name string, data interface{}) error {
	var b strings.Builder
	if err := pages.ExecuteTemplate(&b, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set("Cache-Control", "no-store")
	return c.Status(status).SendString(b.String())
}

var denialPages = map[string][2]string{
	service.ReasonInvalidToken:  {"Link not found", "This share link is not valid."},
	service.ReasonNotFound:      {"Link not found", "This share link does not exist or has been revoked."},
	service.ReasonExpired:       {"Link expired", "This share link has expired."},
	service.ReasonIPNotAllowed:  {"Access denied", "This share link cannot be opened from your network."},
	service.ReasonPermission:    {"Access denied", "This share link does not allow that action."},
	service.ReasonViewLimit:     {"Limit reached", "This share link has reached its view limit."},
	service.ReasonDownloadLimit: {"Limit reached", "This share link has reached its download limit."},
}

func (h *ShareHandler) renderError(c *fiber.Ctx, err error) error {
	var denial *service.Denial
	if errors.As(err, &denial) {
		page := denialPages[denial.Reason]
		return render(c, denial.Status, "error.html", fiber.Map{"Title": page[0], "Message": page[1]})
	}
	slog.Error("share request failed", "path", c.Path(), "error", err.Error())
	return render(c, fiber.StatusInternalServerError, "error.html", fiber.Map{
		"Title":   "Something went wrong",
		"Message": "Please try again later.",
	})
}

func (h *ShareHandler) accessRequest(c *fiber.Ctx, action models.ShareAction) (service.AccessRequest, error) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return service.AccessRequest{}, err
	}
	return service.AccessRequest{
		Token:     c.Query("token"),
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Action:    action,
		Unlocked: func(shareID int64) bool {
			ok, _ := sess.Get(sessionKey(shareID)).(bool)
			return ok
		},
	}, nil
}

func passwordForm(c *fiber.Ctx, status int, msg string) error {
	action := c.Path() + "?token=" + url.QueryEscape(c.Query("token"))
	return render(c, status, "password.html", fiber.Map{"Action": action, "Error": msg})
}

func (h *ShareHandler) SharedReport(c *fiber.Ctx) error {
	action := models.ShareActionView
	if c.QueryBool("download") {
		action = models.ShareActionDownload
	}
	req, err := h.accessRequest(c, action)
	if err != nil {
		return h.renderError(c, err)
	}

	shared, err := h.s.OpenReport(c.Context(), req)
	if errors.Is(err, service.ErrPasswordRequired) {
		return passwordForm(c, fiber.StatusOK, "")
	}
	if err != nil {
		return h.renderError(c, err)
	}

	if action == models.ShareActionDownload {
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", pdfName(shared.Report.Title)))
		c.Set("Cache-Control", "no-store")
		return c.Status(fiber.StatusOK).Send(shared.PDF)
	}

	return render(c, fiber.StatusOK, "report.html", fiber.Map{
		"Report":      shared.Report,
		"CanDownload": shared.CanDownload,
		"DownloadURL": c.Path() + "?token=" + url.QueryEscape(req.Token) + "&download=1",
	})
}

func (h *ShareHandler) SharedCampaign(c *fiber.Ctx) error {
	req, err := h.accessRequest(c, models.ShareActionView)
	if err != nil {
		return h.renderError(c, err)
	}

	shared, err := h.s.OpenCampaign(c.Context(), req)
	if errors.Is(err, service.ErrPasswordRequired) {
		return passwordForm(c, fiber.StatusOK, "")
	}
	if err != nil {
		return h.renderError(c, err)
	}

	return render(c, fiber.StatusOK, "campaign.html", fiber.Map{
		"Campaign":      shared.Campaign,
		"Posts":         shared.Posts,
		"ShowAnalytics": shared.ShowAnalytics,
		"Analytics":     shared.Analytics,
	})
}

// UnlockReport and UnlockCampaign check the submitted password and remember
// success in the visitor's session before redirecting back to the page.
func (h *ShareHandler) UnlockReport(c *fiber.Ctx) error {
	return h.unlock(c, models.ShareKindReport)
}

func (h *ShareHandler) UnlockCampaign(c *fiber.Ctx) error {
	return h.unlock(c, models.ShareKindCampaign)
}

func (h *ShareHandler) unlock(c *fiber.Ctx, kind models.ShareKind) error {
	var form transfer.ShareUnlock
	if err := c.BodyParser(&form); err != nil || form.Password == "" {
		return passwordForm(c, fiber.StatusBadRequest, "Enter the password.")
	}

	token := c.Query("token")
	link, err := h.s.Unlock(c.Context(), kind, token, c.IP(), form.Password)
	if errors.Is(err, service.ErrWrongPassword) {
		return passwordForm(c, fiber.StatusUnauthorized, "Incorrect password.")
	}
	if err != nil {
		return h.renderError(c, err)
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return h.renderError(c, err)
	}
	sess.Set(sessionKey(link.ID), true)
	if err := sess.Save(); err != nil {
		return h.renderError(c, err)
	}

	return c.Redirect(c.Path()+"?token="+url.QueryEscape(token), fiber.StatusSeeOther)
}

func pdfName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, title)
	if name == "" {
		name = "report"
	}
	return name + ".pdf"
}

func (h *ShareHandler) CreateShare(c *fiber.Ctx) error {
	var sc transfer.ShareCreation
	if err := c.BodyParser(&sc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	created, err := h.s.Create(c.Context(), GetClientID(c), GetUserID(c), &sc)
	if err != nil {
		return serviceError(c, err, "Unable to create share link")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ShareHandler) ListShares(c *fiber.Ctx) error {
	links, err := h.s.List(c.Context(), GetClientID(c))
	if err != nil {
		return serviceError(c, err, "Unable to list share links")
	}
	return c.Status(fiber.StatusOK).JSON(links)
}

func (h *ShareHandler) RevokeShare(c *fiber.Ctx) error {
	if err := h.s.Revoke(c.Context(), GetClientID(c), int64(c.QueryInt("id", 0))); err != nil {
		return serviceError(c, err, "Unable to revoke share link")
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ShareHandler) AccessLogs(c *fiber.Ctx) error {
	logs, err := h.s.AccessLogs(c.Context(), GetClientID(c), int64(c.QueryInt("id", 0)))
	if err != nil {
		return serviceError(c, err, "Unable to get access log")
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}
