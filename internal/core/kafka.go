package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes raised threats to a Kafka topic, keyed by user so one
// user's threats stay ordered within a partition.
type KafkaSink struct {
	writer  messageWriter
	topic   string
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewKafkaSink creates a sink for cfg.Topic on cfg.Brokers.
func NewKafkaSink(cfg *KafkaConfig) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
	}, cfg.Topic)
}

func newKafkaSink(w messageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: w, topic: topic, timeout: 5 * time.Second}
}

// Send writes one threat.
func (k *KafkaSink) Send(ctx context.Context, threat Threat) error {
	data, err := threat.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling threat: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(threat.User),
		Value: data,
		Time:  threat.Timestamp,
	}); err != nil {
		return fmt.Errorf("writing threat to kafka topic %s: %w", k.topic, err)
	}
	return nil
}

// SendAsync writes threat in the background and reports the result to done.
// It returns false once the sink is closed.
func (k *KafkaSink) SendAsync(ctx context.Context, threat Threat, done func(error)) bool {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return false
	}
	k.wg.Add(1)
	k.mu.Unlock()

	go func() {
		defer k.wg.Done()
		err := k.Send(ctx, threat)
		if done != nil {
			done(err)
		}
	}()
	return true
}

// Close waits for in-flight sends, then flushes and closes the writer.
func (k *KafkaSink) Close() error {
	k.mu.Lock()
	k.closed = true
	k.mu.Unlock()

	k.wg.Wait()
	return k.writer.Close()
}
