package handlers

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medtracker/internal/logging"
	"medtracker/internal/models"
	"medtracker/internal/services"

	"github.com/gofiber/fiber/v2"
)

// messageSidTTL bounds how long an inbound MessageSid is remembered for
// redelivery dedupe.
const messageSidTTL = 10 * time.Minute

// WebhookHandler receives Twilio SMS and WhatsApp callbacks. Both endpoints
// always answer with TwiML, falling back to a generic message on internal
// error: the patient must never get silence.
type WebhookHandler struct {
	matcher *services.ResponseMatcher
	redis   *services.RedisService // nil-safe, dedupe disabled without it
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(matcher *services.ResponseMatcher, redis *services.RedisService) *WebhookHandler {
	return &WebhookHandler{
		matcher: matcher,
		redis:   redis,
	}
}

// HandleSMS handles POST /api/twilio/twilio-webhook
func (h *WebhookHandler) HandleSMS(c *fiber.Ctx) error {
	return h.handleInbound(c, models.ChannelSMS)
}

// HandleWhatsApp handles POST /api/twilio/whatsapp-webhook. From already
// carries the whatsapp: prefix here; the matcher normalizes it away.
func (h *WebhookHandler) HandleWhatsApp(c *fiber.Ctx) error {
	return h.handleInbound(c, models.ChannelWhatsApp)
}

func (h *WebhookHandler) handleInbound(c *fiber.Ctx, channel string) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")
	messageSid := c.FormValue("MessageSid")

	logger := logging.WithInbound(slog.Default(), from, channel).With("message_sid", messageSid)
	logger.Info("inbound message received")

	if seen, err := h.redis.MarkMessageSeen(c.Context(), messageSid, messageSidTTL); err != nil {
		logger.Warn("message dedupe unavailable", "error", err)
	} else if seen {
		// Twilio redelivered a webhook we already handled; acknowledge
		// without a reply so the patient is not messaged twice.
		logger.Info("duplicate delivery ignored")
		return sendTwiML(c, "")
	}

	result, err := h.matcher.HandleInboundMessage(c.Context(), from, body, time.Now())
	if err != nil {
		logger.Error("failed to process inbound message", "error", err)
		return sendTwiML(c, models.AckFallback)
	}

	logger.Info("inbound message processed", "result", string(result.Kind))
	return sendTwiML(c, result.Acknowledgment(channel))
}

// TestResponse handles POST /api/twilio/test-medication-response, a manual
// exercise of the matcher without the transport in front.
func (h *WebhookHandler) TestResponse(c *fiber.Ctx) error {
	contactNumber := c.FormValue("contact_number")
	message := c.FormValue("message")

	result, err := h.matcher.HandleInboundMessage(c.Context(), contactNumber, message, time.Now())
	if err != nil {
		return c.JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "result": result})
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// sendTwiML writes the Twilio reply document. An empty message produces an
// empty <Response/>, which Twilio treats as "no auto-reply".
func sendTwiML(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	if message == "" {
		return c.SendString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<Response></Response>")
	}
	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Message>%s</Message>
</Response>`, xmlEscaper.Replace(message))
	return c.SendString(twiml)
}
