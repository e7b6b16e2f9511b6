package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medtracker/internal/config"
	"medtracker/internal/models"

	"golang.org/x/time/rate"
)

// TwilioSender sends SMS and WhatsApp messages through the Twilio Messages
// API. Sends are throttled globally so a large tick cannot burst past the
// account's rate limits.
type TwilioSender struct {
	accountSID   string
	authToken    string
	smsFrom      string
	whatsappFrom string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewTwilioSender creates a Twilio-backed notification sender
func NewTwilioSender(cfg *config.Config) *TwilioSender {
	return &TwilioSender{
		accountSID:   cfg.TwilioAccountSID,
		authToken:    cfg.TwilioAuthToken,
		smsFrom:      cfg.TwilioSMSFrom,
		whatsappFrom: cfg.TwilioWhatsAppFrom,
		httpClient:   &http.Client{Timeout: cfg.NotifyTimeout},
		limiter:      rate.NewLimiter(rate.Limit(10), 20), // 10 msg/s, burst 20
	}
}

// Send delivers one message on one channel via the Twilio REST API
func (s *TwilioSender) Send(ctx context.Context, to, body, channel string) error {
	if s.accountSID == "" || s.authToken == "" {
		return fmt.Errorf("twilio credentials incomplete: account SID and auth token are required")
	}

	from := s.smsFrom
	if channel == models.ChannelWhatsApp {
		from = s.whatsappFrom
		if !strings.HasPrefix(to, "whatsapp:") {
			to = "whatsapp:" + to
		}
	}
	if from == "" {
		return fmt.Errorf("no %s sender number configured", channel)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", from)
	data.Set("Body", body)

	apiURL := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(s.accountSID + ":" + s.authToken))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	json.Unmarshal(respBody, &result)

	if resp.StatusCode >= 400 {
		errMsg := "unknown error"
		if msg, ok := result["message"].(string); ok {
			errMsg = msg
		}
		return fmt.Errorf("twilio API error: %s", errMsg)
	}

	slog.Debug("message sent",
		"channel", channel,
		"to", to,
		"message_sid", result["sid"],
		"twilio_status", result["status"],
	)
	return nil
}

// SendTimeout returns the per-attempt timeout applied to each channel send.
func (s *TwilioSender) SendTimeout() time.Duration {
	return s.httpClient.Timeout
}
