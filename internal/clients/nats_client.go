package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sweep-backend/internal/config"
	"sweep-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATSClient NATS client for sweep progress events
type NATSClient struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

// NewNATSClient creates a new NATS client
func NewNATSClient(url, streamName string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	if config.AppConfig != nil && config.AppConfig.NATS.Timeout > 0 {
		connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
		log.Printf("🔌 Using configured NATS timeout: %v", connectTimeout)
	}

	// connect to NATS server
	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ [NATS] Disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ [NATS] Reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &NATSClient{
		conn:       conn,
		js:         js,
		streamName: streamName,
	}

	if err := client.ensureStream(); err != nil {
		log.Printf("⚠️ [NATS] Stream setup failed, falling back to core NATS: %v", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	return client, nil
}

// ensureStream creates the sweep event stream if it does not exist
func (c *NATSClient) ensureStream() error {
	if _, err := c.js.StreamInfo(c.streamName); err == nil {
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name: c.streamName,
		Subjects: []string{
			"sweep.plan.*",
			"sweep.bridge.*.*",
		},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	if _, err := c.js.AddStream(streamConfig); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.streamName, err)
	}

	log.Printf("✅ [NATS] Stream %s created", c.streamName)
	return nil
}

// PublishBridgeUpdate publishes one leg status change.
// Subject: sweep.bridge.<userId>.<status>
func (c *NATSClient) PublishBridgeUpdate(userID string, status string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal bridge update: %w", err)
	}

	subject := fmt.Sprintf("sweep.bridge.%s.%s", userID, status)
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish bridge update: %w", err)
	}
	return nil
}

// PublishPlanUpdate publishes a plan-level progress event.
// Subject: sweep.plan.<planId>
func (c *NATSClient) PublishPlanUpdate(planID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal plan update: %w", err)
	}

	subject := fmt.Sprintf("sweep.plan.%s", planID)
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish plan update: %w", err)
	}
	return nil
}

// Subscribe subscribes to a subject, preferring core NATS and falling back
// to JetStream
func (c *NATSClient) Subscribe(subject string, handler nats.MsgHandler) error {
	if _, err := c.conn.Subscribe(subject, handler); err == nil {
		log.Printf("✅ [NATS] Subscribed: %s", subject)
		return nil
	}

	if _, err := c.js.Subscribe(subject, handler); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("✅ [NATS] JetStream subscribed: %s", subject)
	return nil
}

// Close connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// GetConnection returns the underlying NATS connection
func (c *NATSClient) GetConnection() *nats.Conn {
	return c.conn
}
