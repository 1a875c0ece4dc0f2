package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

const (
	notificationDBName    = "strategiz"
	notificationColl      = "notifications"
	mongoConnectTimeout   = 10 * time.Second
	mongoOperationTimeout = 5 * time.Second
)

// InAppStore writes in-app notification documents to MongoDB, where the
// frontend reads them per user
type InAppStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewInAppStore connects to MongoDB and verifies the connection
func NewInAppStore(uri string) (*InAppStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	log.Println("In-app notification store connected")
	return &InAppStore{
		client:   client,
		database: client.Database(notificationDBName),
	}, nil
}

// CreateNotification inserts one unread notification document for the user
func (s *InAppStore) CreateNotification(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOperationTimeout)
	defer cancel()

	reason := signal.Reason
	if reason == "" {
		reason = "Strategy logic triggered"
	}

	doc := bson.M{
		"type":       "alert_triggered",
		"user_id":    alert.UserID,
		"alert_id":   alert.ID,
		"alert_name": alert.AlertName,
		"signal":     signal.Type,
		"symbol":     symbol,
		"price":      price.String(),
		"reason":     reason,
		"timestamp":  time.Now(),
		"read":       false,
	}

	_, err := s.database.Collection(notificationColl).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	log.Printf("In-app notification created for user %s - %s signal on %s",
		alert.UserID, signal.Type, symbol)
	return nil
}

// Close disconnects the mongo client
func (s *InAppStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOperationTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
