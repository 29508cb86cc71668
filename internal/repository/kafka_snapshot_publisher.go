package repository

import (
	"context"
	"time"

	"StockWatch/internal/domain/models"
	pkgkafka "StockWatch/pkg/kafka"
	applogger "StockWatch/pkg/logger"
)

// snapshotEvent is the wire form of a commit notification. Consumers get
// the headline numbers, not the full snapshot; they fetch details over
// HTTP if they care.
type snapshotEvent struct {
	RefreshedAt  time.Time `json:"refreshed_at"`
	QuoteCount   int       `json:"quote_count"`
	PresentCount int       `json:"present_count"`
	FailureCount int       `json:"failure_count"`
	SectorCount  int       `json:"sector_count"`
	NewsCount    int       `json:"news_count"`
}

// KafkaSnapshotPublisher emits a compact event per committed snapshot.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	logger   *applogger.Logger
}

func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string, logger *applogger.Logger) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic, logger: logger}
}

// PublishCommit sends the commit event keyed by refresh timestamp.
func (p *KafkaSnapshotPublisher) PublishCommit(ctx context.Context, snap *models.Snapshot) error {
	event := snapshotEvent{
		RefreshedAt:  snap.RefreshedAt,
		QuoteCount:   len(snap.Quotes),
		PresentCount: len(snap.PresentQuotes()),
		FailureCount: snap.FailureCount,
		SectorCount:  len(snap.Sectors),
		NewsCount:    len(snap.News),
	}
	return p.producer.Publish(ctx, p.topic, []byte(snap.RefreshedAt.UTC().Format(time.RFC3339)), event)
}

// Close flushes and closes the underlying producer.
func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}
