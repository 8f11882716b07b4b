package handlers

import (
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	config "github.com/maheshrc27/ghst/configs"
	"github.com/maheshrc27/ghst/internal/metrics"
	"github.com/maheshrc27/ghst/internal/models"
	"github.com/maheshrc27/ghst/internal/repository"
	"github.com/maheshrc27/ghst/internal/webhook"
)

const eventReceived = "EVENT_RECEIVED"

// WebhookHandler receives analytics deliveries. Once a signature is accepted
// the response is always 200 so platforms do not redeliver.
type WebhookHandler struct {
	processors map[models.Platform]webhook.Processor
	logs       repository.WebhookLogRepository
	secrets    config.Webhooks
}

func NewWebhookHandler(logs repository.WebhookLogRepository, secrets config.Webhooks, processors ...webhook.Processor) *WebhookHandler {
	h := &WebhookHandler{
		processors: make(map[models.Platform]webhook.Processor, len(processors)),
		logs:       logs,
		secrets:    secrets,
	}
	for _, p := range processors {
		h.processors[p.Platform()] = p
	}
	return h
}

func (h *WebhookHandler) processor(c *fiber.Ctx) (webhook.Processor, bool) {
	p, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return nil, false
	}
	proc, ok := h.processors[p]
	return proc, ok
}

// Verify answers the subscription handshakes.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	proc, ok := h.processor(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	switch proc.Platform() {
	case models.PlatformFacebook:
		mode := firstQuery(c, "hub.mode", "hub_mode")
		token := firstQuery(c, "hub.verify_token", "hub_verify_token")
		if mode != "subscribe" || h.secrets.FacebookVerifyToken == "" || token != h.secrets.FacebookVerifyToken {
			slog.Info("facebook webhook verification rejected", "mode", mode)
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.Status(fiber.StatusOK).SendString(firstQuery(c, "hub.challenge", "hub_challenge"))

	case models.PlatformTwitter:
		crc := c.Query("crc_token")
		if crc == "" || h.secrets.TwitterConsumerSecret == "" {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"response_token": webhook.TwitterCRCResponse(crc, h.secrets.TwitterConsumerSecret),
		})

	case models.PlatformLinkedIn:
		challenge := firstQuery(c, "challenge", "challengeCode")
		if challenge == "" {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.Status(fiber.StatusOK).SendString(challenge)
	}
	return c.SendStatus(fiber.StatusNotFound)
}

func firstQuery(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}

func (h *WebhookHandler) verified(p models.Platform, c *fiber.Ctx) bool {
	body := c.Body()
	switch p {
	case models.PlatformFacebook:
		return webhook.VerifyFacebook(body, c.Get(webhook.FacebookSignatureHeader), h.secrets.FacebookAppSecret)
	case models.PlatformTwitter:
		return webhook.VerifyTwitter(body, c.Get(webhook.TwitterSignatureHeader), h.secrets.TwitterConsumerSecret)
	case models.PlatformLinkedIn:
		if h.secrets.LinkedInSecret == "" {
			slog.Debug("linkedin webhook accepted without signature verification")
			return true
		}
		return webhook.VerifyLinkedIn(body, c.Get(webhook.LinkedInSignatureHeader), h.secrets.LinkedInSecret)
	}
	return false
}

func (h *WebhookHandler) Receive(c *fiber.Ctx) (err error) {
	proc, ok := h.processor(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	platform := proc.Platform()

	if !h.verified(platform, c) {
		metrics.WebhookSignatureRejections.WithLabelValues(string(platform)).Inc()
		slog.Info("webhook signature rejected", "platform", platform, "ip", c.IP())
		return c.Status(fiber.StatusForbidden).SendString("Invalid signature")
	}

	requestID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("webhook processing panicked", "platform", platform, "request_id", requestID, "panic", r)
			err = c.Status(fiber.StatusOK).SendString(eventReceived)
		}
	}()

	body := append([]byte(nil), c.Body()...)
	ctx := c.Context()

	entry := &models.WebhookLog{
		Platform:  platform,
		EventType: proc.EventType(body),
		Payload:   rawPayload(body),
		RequestID: requestID,
	}
	if _, err := h.logs.Create(ctx, entry); err != nil {
		slog.Error("webhook log write failed", "platform", platform, "request_id", requestID, "error", err.Error())
	}

	proc.Process(ctx, body).Log(ctx, requestID)
	return c.Status(fiber.StatusOK).SendString(eventReceived)
}

// rawPayload keeps valid JSON as is and stores anything else as a JSON
// string so the jsonb column accepts it.
func rawPayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func (h *WebhookHandler) MethodNotAllowed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAllow, "GET, POST")
	return c.SendStatus(fiber.StatusMethodNotAllowed)
}
