// Package redpanda publishes feedback events to a Redpanda/Kafka topic.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

// DefaultTopic receives one record per stored feedback entry.
const DefaultTopic = "feedback-submitted"

// FeedbackSubmitted is the record value. Register numbers never leave the store.
type FeedbackSubmitted struct {
	Event            string            `json:"event"`
	FeedbackID       string            `json:"feedback_id"`
	SubjectID        string            `json:"subject_id"`
	StaffName        string            `json:"staff_name"`
	Department       domain.Department `json:"department"`
	Year             int               `json:"year"`
	Semester         int               `json:"semester"`
	FacultyRating    int               `json:"faculty_rating"`
	DifficultyRating int               `json:"difficulty_rating"`
	Sentiment        domain.Sentiment  `json:"sentiment"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Producer implements domain.EventPublisher.
type Producer struct {
	client *kgo.Client
	topic  string
}

var _ domain.EventPublisher = (*Producer)(nil)

// NewProducer connects to brokers with tracing hooks and makes sure topic exists.
// A failed topic check is logged; auto-creation may still succeed on produce.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_producer: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_producer: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 1, 1); err != nil {
		slog.Warn("could not ensure feedback topic", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// PublishFeedbackSubmitted produces one record per entry and waits for acks.
func (p *Producer) PublishFeedbackSubmitted(ctx context.Context, entries []domain.Feedback) error {
	if len(entries) == 0 {
		return nil
	}
	records, err := buildRecords(p.topic, entries)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	if p == nil || p.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		slog.Warn("redpanda flush on close failed", slog.Any("error", err))
	}
	p.client.Close()
}

// buildRecords keys each record by subject so one subject's events stay ordered.
func buildRecords(topic string, entries []domain.Feedback) ([]*kgo.Record, error) {
	out := make([]*kgo.Record, 0, len(entries))
	for _, f := range entries {
		b, err := json.Marshal(FeedbackSubmitted{
			Event:            "feedback_submitted",
			FeedbackID:       f.ID,
			SubjectID:        f.SubjectID,
			StaffName:        f.StaffName,
			Department:       f.Department,
			Year:             f.Year,
			Semester:         f.Semester,
			FacultyRating:    f.FacultyRating,
			DifficultyRating: f.DifficultyRating,
			Sentiment:        f.Sentiment,
			CreatedAt:        f.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("op=redpanda.publish: marshal: %w", err)
		}
		out = append(out, &kgo.Record{
			Topic: topic,
			Key:   []byte(f.SubjectID),
			Value: b,
			Headers: []kgo.RecordHeader{
				{Key: "feedback_id", Value: []byte(f.ID)},
				{Key: "department", Value: []byte(f.Department)},
			},
		})
	}
	return out, nil
}
