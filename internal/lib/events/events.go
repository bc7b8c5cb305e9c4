package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"orcid/internal/domain/models"
	"orcid/internal/lib/logger/sl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "orcid.profile.created"

var publishErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orcid_event_publish_errors_total",
		Help: "Total number of profile events that failed to publish",
	},
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher announces fulfilled profile requests on a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	log    *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf(msg, args...))
		}),
	}

	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) ProfileCreated(ctx context.Context, ev models.ProfileCreated) error {
	const op = "events.KafkaPublisher.ProfileCreated"

	msg, err := profileCreatedMessage(ev)
	if err != nil {
		publishErrors.Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishErrors.Inc()
		p.log.Error("failed to publish profile created event", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// profileCreatedMessage keys by user so every event for a user lands on one partition.
func profileCreatedMessage(ev models.ProfileCreated) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.UserID, 10)),
		Value: data,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("orcid.profile.created")},
		},
	}, nil
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) ProfileCreated(context.Context, models.ProfileCreated) error { return nil }
func (Nop) Close() error                                                { return nil }
