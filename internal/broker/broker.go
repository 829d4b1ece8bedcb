// Package broker publishes enriched domain records onto an Apache Pulsar
// topic, the optional fan-out step SPEC_FULL.md §4.6 adds alongside the
// relational sink.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/apache/pulsar-client-go/pulsar"

	"ctsentinel/internal/pipeline"
)

// Publisher is the sink-side publish boundary, kept as an interface so
// stage D can run with publishing disabled without a nil-pointer special
// case at every call site.
type Publisher interface {
	Publish(ctx context.Context, record pipeline.EnrichedRecord) error
	Close()
}

// message is the wire shape published to the topic: one JSON object per
// enriched domain, mirroring the original design's enriched_data dict.
type message struct {
	ID     int64    `json:"id"`
	Domain string   `json:"domain"`
	IPs    []string `json:"ips"`
	NS     []string `json:"ns"`
}

// PulsarPublisher wraps a single Pulsar client/producer pair, reused for
// the life of the process as the original design's PulsarProducer does.
type PulsarPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

// NewPulsarPublisher connects to the broker at url and creates a producer
// on topic.
func NewPulsarPublisher(url, topic string) (*PulsarPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: url})
	if err != nil {
		return nil, fmt.Errorf("broker: create client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{Topic: topic})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("broker: create producer: %w", err)
	}

	log.Printf("broker: publishing to %s via %s", topic, url)
	return &PulsarPublisher{client: client, producer: producer}, nil
}

// Publish sends one enriched record as a JSON payload.
func (p *PulsarPublisher) Publish(ctx context.Context, record pipeline.EnrichedRecord) error {
	payload, err := json.Marshal(message{
		ID:     record.ID,
		Domain: record.Domain,
		IPs:    record.IPList(),
		NS:     record.NSList(),
	})
	if err != nil {
		return fmt.Errorf("broker: marshal record: %w", err)
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{Payload: payload})
	if err != nil {
		return fmt.Errorf("broker: send: %w", err)
	}
	return nil
}

// Close releases the producer and client.
func (p *PulsarPublisher) Close() {
	if p.producer != nil {
		p.producer.Close()
	}
	if p.client != nil {
		p.client.Close()
	}
}
