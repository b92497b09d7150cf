package sinks

import (
	"sync"
	"sync/atomic"
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/commtypes"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const (
	DEFAULT_KAFKA_SOURCE = "igmp-stats"
	kafkaFlushTimeoutMs  = 5 * 1000
	kafkaMaxFlushRounds  = 3
)

// KafkaSink produces every encoded event to one topic, keyed by the source
// name. Delivery reports are consumed on a separate goroutine.
type KafkaSink struct {
	producer *kafka.Producer
	serde    commtypes.SerdeG[commtypes.StatsEvent]
	topic    string
	source   string

	delivered atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	reports   sync.WaitGroup
}

var _ = Sink(&KafkaSink{})

func CreateProducer(broker string, flushMs int) (*kafka.Producer, error) {
	return kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     broker,
		"go.produce.channel.size":               1000,
		"go.events.channel.size":                1000,
		"acks":                                  "all",
		"linger.ms":                             flushMs,
		"max.in.flight.requests.per.connection": 5,
	})
}

func NewKafkaSink(broker string, topic string, serdeFormat commtypes.SerdeFormat) (*KafkaSink, error) {
	serde, err := commtypes.GetStatsEventSerdeG(serdeFormat)
	if err != nil {
		return nil, err
	}
	p, err := CreateProducer(broker, 5)
	if err != nil {
		return nil, xerrors.Errorf("create kafka producer: %w", err)
	}
	s := &KafkaSink{
		producer: p,
		serde:    serde,
		topic:    topic,
		source:   DEFAULT_KAFKA_SOURCE,
	}
	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		for e := range p.Events() {
			s.handleEvent(e)
		}
	}()
	return s, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) OnStatsEvent(ev commtypes.StatsEvent) error {
	if s.closed.Load() {
		return common_errors.ErrSinkClosed
	}
	enc, err := s.serde.Encode(ev)
	if err != nil {
		return xerrors.Errorf("encode stats event: %w", err)
	}
	return s.producer.Produce(kafkaMessage(&s.topic, s.source, enc, ev), nil)
}

func kafkaMessage(topic *string, source string, enc []byte, ev commtypes.StatsEvent) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: topic, Partition: kafka.PartitionAny},
		Key:            []byte(source),
		Value:          enc,
		Timestamp:      ev.Time(),
	}
}

func (s *KafkaSink) handleEvent(e kafka.Event) {
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			s.failed.Add(1)
			log.Error().Err(ev.TopicPartition.Error).Str("topic", s.topic).Msg("stats delivery failed")
		} else {
			s.delivered.Add(1)
			log.Debug().Msgf("Delivered stats to %v, ts %v", ev.TopicPartition, ev.Timestamp)
		}
	case kafka.Error:
		log.Warn().Err(ev).Str("topic", s.topic).Msg("kafka producer error")
	default:
	}
}

// Close flushes outstanding messages for a bounded time, then shuts the
// producer down.
func (s *KafkaSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	remaining := s.producer.Flush(kafkaFlushTimeoutMs)
	for i := 1; remaining != 0 && i < kafkaMaxFlushRounds; i++ {
		remaining = s.producer.Flush(kafkaFlushTimeoutMs)
	}
	s.producer.Close()
	s.reports.Wait()
	log.Info().Uint64("delivered", s.delivered.Load()).Uint64("failed", s.failed.Load()).
		Int("unflushed", remaining).Dur("flushTimeout", kafkaFlushTimeoutMs*time.Millisecond).
		Msg("kafka stats sink closed")
	return nil
}
