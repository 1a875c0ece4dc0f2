package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// EmailSender delivers signal emails through the SendGrid v3 API
type EmailSender struct {
	apiKey      string
	fromEmail   string
	fromName    string
	frontendURL string
	httpClient  *http.Client
}

// NewEmailSender creates a SendGrid-backed email sender
func NewEmailSender(apiKey, fromEmail, fromName, frontendURL string) *EmailSender {
	return &EmailSender{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// sendGridMail is the v3 mail/send request body
type sendGridMail struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress `json:"from"`
	Subject string          `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendSignalEmail sends the signal alert email to the alert's resolved address
func (e *EmailSender) SendSignalEmail(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	if alert.NotificationEmail == "" {
		log.Printf("No email address available for user %s, skipping email notification", alert.UserID)
		return nil
	}

	signalColor := "#ef4444"
	if signal.Type == execution.SignalBuy {
		signalColor = "#10b981"
	}

	reason := signal.Reason
	if reason == "" {
		reason = "Strategy logic triggered"
	}

	htmlBody := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
	<h2 style="color: #10b981;">Trading Alert Triggered!</h2>
	<p>Your alert <strong>%q</strong> has detected a trading signal:</p>
	<table style="border-collapse: collapse; max-width: 500px; margin: 20px 0;">
		<tr><td style="padding: 10px;"><strong>Signal:</strong></td><td style="padding: 10px; color: %s;"><strong>%s</strong></td></tr>
		<tr><td style="padding: 10px;"><strong>Symbol:</strong></td><td style="padding: 10px;">%s</td></tr>
		<tr><td style="padding: 10px;"><strong>Price:</strong></td><td style="padding: 10px;">$%s</td></tr>
		<tr><td style="padding: 10px;"><strong>Reason:</strong></td><td style="padding: 10px;">%s</td></tr>
	</table>
	<p><a href="%s/live-strategies">View in Strategiz</a></p>
</body>
</html>`,
		alert.AlertName, signalColor, signal.Type, symbol, price.StringFixed(2), reason, e.frontendURL)

	mail := sendGridMail{
		From:    sendGridAddress{Email: e.fromEmail, Name: e.fromName},
		Subject: fmt.Sprintf("[Strategiz Alert] %s signal for %s", signal.Type, symbol),
	}
	mail.Personalizations = append(mail.Personalizations, struct {
		To []sendGridAddress `json:"to"`
	}{To: []sendGridAddress{{Email: alert.NotificationEmail}}})
	mail.Content = append(mail.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: htmlBody})

	payload, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, sendGridEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("Email notification sent to %s for %s signal on %s",
		alert.NotificationEmail, signal.Type, symbol)
	return nil
}
