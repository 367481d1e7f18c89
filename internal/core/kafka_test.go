package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	block  chan struct{}
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write after close")
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWriter) messages() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...)
}

func TestNewKafkaSink(t *testing.T) {
	brokers := []string{"k1:9092", "k2:9092"}
	sink := NewKafkaSink(&KafkaConfig{Brokers: brokers, Topic: "casb.threats"})
	defer sink.Close()

	w, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "casb.threats", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, strings.Join(brokers, ","), w.Addr.String())
}

func TestKafkaSink_Send(t *testing.T) {
	fw := &fakeWriter{}
	sink := newKafkaSink(fw, "casb.threats")

	threat := NewThreat(engineNow, ThreatUnusualLoginLocation, "alice@example.com", "1.1.1.1", "login from Germany", ThreatStatusAlerted)
	require.NoError(t, sink.Send(context.Background(), threat))

	msgs := fw.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", string(msgs[0].Key))
	want, err := threat.Marshal()
	require.NoError(t, err)
	assert.Equal(t, want, msgs[0].Value)
	assert.True(t, msgs[0].Time.Equal(engineNow))
}

func TestKafkaSink_SendError(t *testing.T) {
	sink := newKafkaSink(&fakeWriter{err: errors.New("broker down")}, "casb.threats")
	err := sink.Send(context.Background(), Threat{User: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "casb.threats")
}

func TestKafkaSink_CloseWaitsForInflight(t *testing.T) {
	fw := &fakeWriter{block: make(chan struct{})}
	sink := newKafkaSink(fw, "casb.threats")

	var sendErr error
	require.True(t, sink.SendAsync(context.Background(), Threat{User: "a"}, func(err error) { sendErr = err }))

	closed := make(chan struct{})
	go func() {
		_ = sink.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a send was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(fw.block)
	<-closed

	assert.NoError(t, sendErr)
	assert.Len(t, fw.messages(), 1)
	assert.False(t, sink.SendAsync(context.Background(), Threat{User: "b"}, nil), "closed sink rejects sends")
}

func TestEngine_KafkaExport(t *testing.T) {
	fw := &fakeWriter{}
	_, factory := newManualTicker()
	e := newTestEngine(t, testConfig(true), WithTickerFactory(factory), withKafkaSink(newKafkaSink(fw, "casb.threats")))
	require.NoError(t, e.Start())

	e.SimulateAnomaly()
	require.NoError(t, e.Shutdown())

	msgs := fw.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SimulatedUser, string(msgs[0].Key))
	threat := e.Threats.Ordered()[0]
	want, err := threat.Marshal()
	require.NoError(t, err)
	assert.Equal(t, want, msgs[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.Metrics.ThreatsPublished.WithLabelValues("kafka", "ok")))
}
