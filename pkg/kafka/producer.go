// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	kafkago "github.com/segmentio/kafka-go"
)

// Producer writes events to one topic. The routing key travels in the
// "event" header and also keys the message, so events of one kind share a
// partition.
type Producer struct {
	writer *kafkago.Writer
}

// NewProducer creates a Producer for brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish encodes event as JSON and writes it synchronously.
func (p *Producer) Publish(ctx context.Context, routingKey string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	msg := kafkago.Message{
		Key:     []byte(routingKey),
		Value:   data,
		Headers: []kafkago.Header{{Key: "event", Value: []byte(routingKey)}},
		Time:    time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", routingKey)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
