package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// EventStore is where the live listener appends events
type EventStore interface {
	InsertBatch(ctx context.Context, events []models.Event) (int, error)
}

// BadgeMessage is the JSON payload published by badge readers
type BadgeMessage struct {
	PersonID  string `json:"person_id"`
	Name      string `json:"name,omitempty"`
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Location  string `json:"location,omitempty"`
}

// MQTTListener subscribes to the badge topic and stores each tap as it arrives.
type MQTTListener struct {
	client  mqtt.Client
	topic   string
	store   EventStore
	loc     *time.Location
	exclude *Exclusions
	logger  *slog.Logger
	now     func() time.Time
}

// NewMQTTListener creates a listener for broker (e.g. "tcp://localhost:1883")
func NewMQTTListener(broker, topic string, store EventStore, loc *time.Location, exclude *Exclusions, logger *slog.Logger) *MQTTListener {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &MQTTListener{
		topic:   topic,
		store:   store,
		loc:     loc,
		exclude: exclude,
		logger:  logger.With("component", "mqtt_listener", "topic", topic),
		now:     time.Now,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("losstime-" + uuid.NewString()).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			if err := l.subscribe(c); err != nil {
				l.logger.Error("subscribe failed", "error", err)
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			l.logger.Warn("connection lost", "error", err)
		})
	l.client = mqtt.NewClient(opts)
	return l
}

// Start connects to the broker. Subscription happens on every (re)connect.
func (l *MQTTListener) Start(ctx context.Context) error {
	token := l.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	l.logger.Info("mqtt listener started")
	return nil
}

// Stop disconnects, waiting briefly for in-flight work
func (l *MQTTListener) Stop() {
	l.client.Disconnect(250)
}

func (l *MQTTListener) subscribe(c mqtt.Client) error {
	token := c.Subscribe(l.topic, 1, l.onMessage)
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("subscribe timed out")
	}
	return token.Error()
}

func (l *MQTTListener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.Handle(ctx, msg.Payload()); err != nil {
		l.logger.Warn("badge message rejected", "msg_topic", msg.Topic(), "error", err)
	}
}

// Handle decodes one badge payload and stores it. Excluded persons are
// dropped without error.
func (l *MQTTListener) Handle(ctx context.Context, payload []byte) error {
	ev, err := l.decode(payload)
	if err != nil {
		return err
	}
	if l.exclude.Excluded(ev.PersonID, ev.PersonName) {
		return nil
	}

	n, err := l.store.InsertBatch(ctx, []models.Event{ev})
	if err != nil {
		return err
	}
	if n == 0 {
		l.logger.Debug("duplicate badge event ignored", "person_id", ev.PersonID, "direction", ev.Direction)
		return nil
	}
	l.logger.Debug("badge event stored", "person_id", ev.PersonID, "direction", ev.Direction)
	return nil
}

func (l *MQTTListener) decode(payload []byte) (models.Event, error) {
	var msg BadgeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.Event{}, fmt.Errorf("invalid badge payload: %w", err)
	}
	if msg.PersonID == "" {
		return models.Event{}, errors.New("badge payload without person_id")
	}
	dir, ok := NormalizeDirection(msg.Direction)
	if !ok {
		return models.Event{}, fmt.Errorf("unknown direction %q", msg.Direction)
	}

	ts := l.now().In(l.loc)
	if msg.Timestamp != "" {
		parsed, err := ParseTimestamp(msg.Timestamp, l.loc)
		if err != nil {
			return models.Event{}, err
		}
		ts = parsed
	}

	return models.Event{
		PersonID:   msg.PersonID,
		PersonName: msg.Name,
		Timestamp:  ts,
		Direction:  dir,
		Location:   msg.Location,
		BatchID:    "mqtt",
	}, nil
}
