package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

// SignalEvent is the wire format published to the signal topic. Downstream
// delivery workers (SMS, push) consume these.
type SignalEvent struct {
	AlertID   string `json:"alert_id"`
	UserID    string `json:"user_id"`
	AlertName string `json:"alert_name"`
	Signal    string `json:"signal"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Reason    string `json:"reason,omitempty"`
	Channels  string `json:"channels"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// SignalPublisher publishes signal events to Kafka with an async producer
type SignalPublisher struct {
	producer sarama.AsyncProducer
	topic    string

	sentCount  atomic.Int64
	errorCount atomic.Int64

	wg sync.WaitGroup
}

// NewSignalPublisher creates the async producer and starts its result loops
func NewSignalPublisher(brokers []string, topic string) (*SignalPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := &SignalPublisher{
		producer: producer,
		topic:    topic,
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	log.Printf("Signal publisher connected to kafka (topic: %s)", topic)
	return p, nil
}

// Publish enqueues one signal event, keyed by alert ID so per-alert order
// is preserved across partitions
func (p *SignalPublisher) Publish(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	event := SignalEvent{
		AlertID:   alert.ID,
		UserID:    alert.UserID,
		AlertName: alert.AlertName,
		Signal:    signal.Type,
		Symbol:    symbol,
		Price:     price.String(),
		Reason:    signal.Reason,
		Channels:  alert.NotificationChannels,
		Timestamp: time.Now().UnixMilli(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode signal event: %w", err)
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(alert.ID),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

func (p *SignalPublisher) handleSuccesses() {
	defer p.wg.Done()
	for range p.producer.Successes() {
		p.sentCount.Add(1)
	}
}

func (p *SignalPublisher) handleErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		p.errorCount.Add(1)
		log.Printf("Failed to publish signal event: %v", err.Err)
	}
}

// Stats returns sent and failed message counts
func (p *SignalPublisher) Stats() (sent, failed int64) {
	return p.sentCount.Load(), p.errorCount.Load()
}

// Close flushes pending messages and shuts the producer down
func (p *SignalPublisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	log.Printf("Signal publisher closed (sent: %d, failed: %d)",
		p.sentCount.Load(), p.errorCount.Load())
	return nil
}
