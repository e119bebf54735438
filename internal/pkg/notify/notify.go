package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers one-time codes to an identifier (mobile number or email).
type Notifier interface {
	SendOTP(identifier, code string, expiresAt time.Time) error
}

// Config holds delivery settings for both transports.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName      string
	FromEmail     string
	SMSSenderID   string
	SMSWebhookURL string
}

// Service implements Notifier over SMTP for emails and an SMS gateway
// webhook for mobile numbers.
type Service struct {
	config Config
	client *http.Client
	logger zerolog.Logger
}

// NewService creates a new delivery Service.
func NewService(config Config, logger zerolog.Logger) *Service {
	return &Service{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// SendOTP delivers a code over the transport matching the identifier shape.
func (s *Service) SendOTP(identifier, code string, expiresAt time.Time) error {
	if strings.Contains(identifier, "@") {
		return s.sendEmail(identifier, code, expiresAt)
	}
	return s.sendSMS(identifier, code, expiresAt)
}

func (s *Service) sendEmail(toEmail, code string, expiresAt time.Time) error {
	// If username or password is empty, log the code instead (for development only)
	if s.config.SMTPUsername == "" || s.config.SMTPPassword == "" {
		s.logger.Warn().
			Str("toEmail", toEmail).
			Str("code", code).
			Time("expiresAt", expiresAt).
			Msg("SMTP credentials not configured - OTP email not sent. Use the code above for testing.")
		return nil
	}

	subject := "Your one-time login code"
	body := fmt.Sprintf("Your login code is %s. It expires at %s.",
		code, expiresAt.Format("15:04"))

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.config.FromName, s.config.FromEmail, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.config.FromEmail, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	s.logger.Info().Str("toEmail", toEmail).Msg("OTP email sent")
	return nil
}

// smsMessage is the JSON body posted to the SMS gateway webhook.
type smsMessage struct {
	To       string `json:"to"`
	SenderID string `json:"senderId,omitempty"`
	Text     string `json:"text"`
}

func (s *Service) sendSMS(mobile, code string, expiresAt time.Time) error {
	// Without a gateway URL the code is only written to the log (for development only)
	if s.config.SMSWebhookURL == "" {
		s.logger.Warn().
			Str("mobile", mobile).
			Str("code", code).
			Time("expiresAt", expiresAt).
			Msg("SMS gateway not configured - OTP not sent. Use the code above for testing.")
		return nil
	}

	payload, err := json.Marshal(smsMessage{
		To:       mobile,
		SenderID: s.config.SMSSenderID,
		Text:     fmt.Sprintf("Your login code is %s. It expires at %s.", code, expiresAt.Format("15:04")),
	})
	if err != nil {
		return fmt.Errorf("failed to build sms payload: %w", err)
	}

	resp, err := s.client.Post(s.config.SMSWebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to send otp sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway answered %s", resp.Status)
	}

	s.logger.Info().Str("mobile", mobile).Msg("OTP SMS sent")
	return nil
}
