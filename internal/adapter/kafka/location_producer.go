// Package kafka streams raw driver position reports to a topic for
// downstream analytics. The writer batches internally; dispatch never
// waits on it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
)

type LocationProducer struct {
	writer *kafka.Writer
}

func NewLocationProducer(brokers []string, topic string) *LocationProducer {
	return &LocationProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

// Archive appends one report, keyed by driver so a driver's reports land
// on one partition in order.
func (p *LocationProducer) Archive(ctx context.Context, loc models.DriverLocation) error {
	payload, err := json.Marshal(models.LocationPayload{
		DriverID:       loc.DriverID,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
		HeadingDegrees: loc.HeadingDegrees,
		SpeedKmh:       loc.SpeedKmh,
		ReportedAt:     loc.ReportedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal location: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(loc.DriverID.String()),
		Value: payload,
		Time:  loc.ReportedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka: write location: %w", err)
	}
	return nil
}

func (p *LocationProducer) Close() error {
	return p.writer.Close()
}
