package notify

import (
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

// Service fans detected signals out to a user's configured channels.
// Every channel is best-effort: a delivery failure is logged and never
// propagated back to the evaluation loop.
type Service struct {
	email  *EmailSender     // nil when SendGrid is not configured
	inapp  *InAppStore      // nil when Mongo is not configured
	stream *StreamHub       // nil when the live stream is disabled
	events *SignalPublisher // nil when Kafka is not configured
}

// NewService wires the dispatcher. Any collaborator may be nil; its
// channel is then skipped with a warning.
func NewService(email *EmailSender, inapp *InAppStore, stream *StreamHub, events *SignalPublisher) *Service {
	return &Service{
		email:  email,
		inapp:  inapp,
		stream: stream,
		events: events,
	}
}

// SendSignalNotification dispatches the signal to each configured channel.
// The fan-out runs on its own goroutine so the evaluation loop never waits
// for delivery confirmation.
func (s *Service) SendSignalNotification(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) {
	go s.fanOut(alert, signal, symbol, price)
}

func (s *Service) fanOut(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) {
	log.Printf("Sending %s signal notification for alert %s (symbol: %s, price: $%s)",
		signal.Type, alert.AlertName, symbol, price.StringFixed(2))

	for _, channel := range alert.ChannelList() {
		var err error
		switch strings.ToLower(channel) {
		case "email":
			err = s.sendEmail(alert, signal, symbol, price)
		case "in-app", "inapp":
			err = s.sendInApp(alert, signal, symbol, price)
		case "sms", "push":
			// Delivered by downstream workers consuming the signal topic
			err = s.publishEvent(alert, signal, symbol, price)
		default:
			log.Printf("Unknown notification channel: %s", channel)
			continue
		}
		if err != nil {
			log.Printf("Failed to send %s notification for alert %s: %v", channel, alert.ID, err)
		}
	}

	// Live dashboards get every delivered signal regardless of channels
	if s.stream != nil {
		s.stream.BroadcastSignal(alert, signal, symbol, price)
	}
}

func (s *Service) sendEmail(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	if s.email == nil {
		log.Println("SendGrid not configured, skipping email notification")
		return nil
	}
	return s.email.SendSignalEmail(alert, signal, symbol, price)
}

func (s *Service) sendInApp(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	if s.inapp == nil {
		log.Println("In-app notification store not configured, skipping")
		return nil
	}
	return s.inapp.CreateNotification(alert, signal, symbol, price)
}

func (s *Service) publishEvent(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	if s.events == nil {
		log.Println("Signal event publisher not configured, skipping")
		return nil
	}
	return s.events.Publish(alert, signal, symbol, price)
}

// SendTestNotification pushes a synthetic BUY signal through the full
// fan-out, used by the alert test endpoint
func (s *Service) SendTestNotification(alert *models.AlertDeployment) {
	testSignal := execution.Signal{
		Type:   execution.SignalBuy,
		Reason: "This is a test notification",
	}

	symbols := alert.SymbolList()
	symbol := "TEST"
	if len(symbols) > 0 {
		symbol = symbols[0]
	}

	s.SendSignalNotification(alert, testSignal, symbol, decimal.NewFromInt(100))
}
