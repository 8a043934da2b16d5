package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// ErrKafkaBacklog is returned when the producer's input buffer is full.
// The event is dropped rather than holding up the request that emitted it.
var ErrKafkaBacklog = errors.New("kafka producer backlog full")

// KafkaSink produces every envelope to a topic, keyed by channel so events
// for one restaurant scope stay ordered within a partition. Delivery is
// asynchronous; failures surface on the producer's error channel and are
// logged.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
	onError  func(*sarama.ProducerError)
	done     chan struct{}
}

// NewKafkaProducer builds an AsyncProducer for brokers.
func NewKafkaProducer(brokers []string) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.ChannelBufferSize = 1024
	cfg.Net.DialTimeout = 10 * time.Second

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaSink starts draining producer's errors. The producer must be built
// with Return.Successes off.
func NewKafkaSink(producer sarama.AsyncProducer, topic string) *KafkaSink {
	return newKafkaSink(producer, topic, func(perr *sarama.ProducerError) {
		log.Printf("WARN: kafka produce to %s: %v", perr.Msg.Topic, perr.Err)
	})
}

func newKafkaSink(producer sarama.AsyncProducer, topic string, onError func(*sarama.ProducerError)) *KafkaSink {
	k := &KafkaSink{
		producer: producer,
		topic:    topic,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go k.drainErrors()
	return k
}

func (k *KafkaSink) drainErrors() {
	defer close(k.done)
	for perr := range k.producer.Errors() {
		k.onError(perr)
	}
}

// Publish queues env without waiting for the broker.
func (k *KafkaSink) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(env.Channel),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(env.Type)},
		},
	}
	select {
	case k.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("kafka produce %s: %w", env.Type, ErrKafkaBacklog)
	}
}

// Close flushes queued messages and waits for the error drain to finish.
func (k *KafkaSink) Close() error {
	k.producer.AsyncClose()
	<-k.done
	return nil
}
