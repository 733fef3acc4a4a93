package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"caseline/internal/timeline/models"
)

// KafkaSink publishes metric records and exclusions to Kafka topics for the
// downstream columnar store to ingest. Records are keyed by person ID so one
// person's output lands in one partition, preserving per-person ordering.
type KafkaSink struct {
	client          *kgo.Client
	metricsTopic    string
	exclusionsTopic string
}

func NewKafka(brokers []string, metricsTopic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{
		client:          client,
		metricsTopic:    metricsTopic,
		exclusionsTopic: metricsTopic + ".exclusions",
	}, nil
}

func (s *KafkaSink) WriteMetrics(ctx context.Context, records []models.MetricRecord) error {
	kafkaRecords := make([]*kgo.Record, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode metric record %s: %w", record.ID, err)
		}
		kafkaRecords = append(kafkaRecords, &kgo.Record{
			Topic: s.metricsTopic,
			Key:   []byte(record.PersonID.String()),
			Value: payload,
		})
	}
	return s.produce(ctx, kafkaRecords)
}

func (s *KafkaSink) WriteExclusions(ctx context.Context, exclusions []models.Exclusion) error {
	kafkaRecords := make([]*kgo.Record, 0, len(exclusions))
	for _, exclusion := range exclusions {
		payload, err := json.Marshal(exclusion)
		if err != nil {
			return fmt.Errorf("encode exclusion: %w", err)
		}
		kafkaRecords = append(kafkaRecords, &kgo.Record{
			Topic: s.exclusionsTopic,
			Key:   []byte(exclusion.PersonID.String()),
			Value: payload,
		})
	}
	return s.produce(ctx, kafkaRecords)
}

func (s *KafkaSink) produce(ctx context.Context, records []*kgo.Record) error {
	if len(records) == 0 {
		return nil
	}
	results := s.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce to kafka: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
