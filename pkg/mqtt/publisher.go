// Package mqtt publishes receiver events — control-channel retunes, call
// start/end, and event-log records — to an MQTT broker for external
// dashboards and loggers. Grounded on this module's own pkg/mqtt stub
// (Config/Publisher shape, topic prefixing) wired for the first time to
// a real github.com/eclipse/paho.mqtt.golang client, following the
// connect-options pattern in madpsy-ka9q_ubersdr's MQTTPublisher.
package mqtt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/dsd-nexus/pkg/event"
	"github.com/dbehnke/dsd-nexus/pkg/logger"
)

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Publisher handles MQTT event publishing
type Publisher struct {
	config Config
	log    *logger.Logger
	client paho.Client
}

// TuneEvent announces a control/voice-channel retune, the MQTT
// counterpart to WebSocketHub.BroadcastTuneEvent.
type TuneEvent struct {
	FreqHz    uint64    `json:"freq_hz"`
	Slot      int       `json:"slot"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// CallStartEvent announces the start of a voice or data call.
type CallStartEvent struct {
	Protocol  string    `json:"protocol"`
	SourceID  uint32    `json:"source_id"`
	DestID    uint32    `json:"dest_id"`
	Slot      int       `json:"slot"`
	Timestamp time.Time `json:"timestamp"`
}

// CallEndEvent announces the end of a voice or data call.
type CallEndEvent struct {
	Protocol    string    `json:"protocol"`
	SourceID    uint32    `json:"source_id"`
	DestID      uint32    `json:"dest_id"`
	Slot        int       `json:"slot"`
	Duration    float64   `json:"duration_s"`
	PacketCount int       `json:"packet_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventRecordEvent wraps one event-log record (call-alias/GPS/SMS text
// line) for publication.
type EventRecordEvent struct {
	Slot   int          `json:"slot"`
	Record event.Record `json:"record"`
}

// generateClientID creates a random client ID when none is configured,
// avoiding broker-side ID collisions between multiple receiver instances.
func generateClientID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "dsd-nexus-" + hex.EncodeToString(buf)
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("mqtt"),
	}
}

// Start connects to the configured broker. It returns nil immediately
// when MQTT is disabled, and respects ctx cancellation while the initial
// connect attempt is in flight.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	clientID := p.config.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(clientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
	}
	if p.config.Password != "" {
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		p.log.Info("Connected to MQTT broker", logger.String("broker", p.config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.log.Warn("MQTT connection lost", logger.Error(err))
	})

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", clientID))

	client := paho.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect to broker %s: %w", p.config.Broker, err)
	}

	p.client = client
	return nil
}

// Stop disconnects the MQTT client, waiting up to 250ms for in-flight
// publishes to drain.
func (p *Publisher) Stop() {
	if !p.config.Enabled || p.client == nil {
		return
	}
	p.log.Info("Stopping MQTT publisher")
	p.client.Disconnect(250)
}

// PublishTune publishes a control/voice-channel retune event.
func (p *Publisher) PublishTune(evt TuneEvent) error {
	if !p.config.Enabled {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return p.publish(p.formatTopic("tune"), evt)
}

// PublishCallStart publishes a call-start event.
func (p *Publisher) PublishCallStart(evt CallStartEvent) error {
	if !p.config.Enabled {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return p.publish(p.formatTopic(fmt.Sprintf("calls/slot%d/start", evt.Slot)), evt)
}

// PublishCallEnd publishes a call-end event.
func (p *Publisher) PublishCallEnd(evt CallEndEvent) error {
	if !p.config.Enabled {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return p.publish(p.formatTopic(fmt.Sprintf("calls/slot%d/end", evt.Slot)), evt)
}

// PublishEventRecord publishes one event-log record (alias/GPS/text).
func (p *Publisher) PublishEventRecord(evt EventRecordEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic(fmt.Sprintf("events/slot%d", evt.Slot)), evt)
}

// publish publishes an event to a topic.
func (p *Publisher) publish(topic string, evt interface{}) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	if p.client == nil {
		p.log.Warn("MQTT publish skipped: client not connected",
			logger.String("topic", topic))
		return nil
	}

	token := p.client.Publish(topic, p.config.QoS, p.config.Retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		p.log.Error("Failed to publish MQTT event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}
	return nil
}

// formatTopic formats a topic with the configured prefix.
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
