package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// bufferCapacity holds roughly a day of events while the broker is away.
const bufferCapacity = 256

// pahoClient is the part of paho.Client the publisher uses.
type pahoClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an MQTT broker, buffering while disconnected and
// replaying on reconnect.
type RealPublisher struct {
	client pahoClient
	topics Topics
	logger zerolog.Logger

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// unreachable the publisher is still returned; paho keeps retrying and
// messages are buffered until it connects.
func NewRealPublisher(broker, clientID string, logger zerolog.Logger) (*RealPublisher, error) {
	topics := TopicsFor(clientID)
	p := newPublisher(nil, topics, logger)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(topics.System, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
		})

	client := paho.NewClient(opts)
	p.client = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		logger.Warn().Str("broker", broker).Msg("MQTT connection timeout, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	logger.Info().Str("broker", broker).Str("client_id", clientID).Msg("MQTT connected")
	return p, nil
}

func newPublisher(client pahoClient, topics Topics, logger zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		client: client,
		topics: topics,
		logger: logger,
		buffer: newRingBuffer(bufferCapacity, logger),
	}
}

// Publish sends a clock event. QoS 0, not retained.
func (p *RealPublisher) Publish(event tideclock.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.topics.Events, payload: payload})
}

// PublishSystem sends a lifecycle event. QoS 1 so shutdowns are delivered.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages. It runs on paho's connect callback.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs := p.buffer.drain()
	p.mu.Unlock()

	for _, msg := range msgs {
		if err := p.publish(msg); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to replay buffered message")
		}
	}
	if len(msgs) > 0 {
		p.logger.Info().Int("count", len(msgs)).Msg("Replayed buffered MQTT messages")
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
