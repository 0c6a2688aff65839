package stream

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	skafka "github.com/radieske/live-odds-sync/internal/shared/kafka"
	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// KafkaConnector consome o tópico de odds como fonte de stream.
// Alternativa ao WS pra ambientes onde o backend publica deltas no Kafka.
type KafkaConnector struct {
	Brokers string
	Topic   string
	GroupID string
	Log     *zap.Logger
}

func (c *KafkaConnector) Connect(ctx context.Context) (Session, error) {
	reader := skafka.NewReader(c.Brokers, c.Topic, c.GroupID)

	s := &kafkaSession{
		updates: make(chan events.OddsUpdate, 16),
		done:    make(chan error, 1),
	}
	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.closeReader = func() { _ = reader.Close() }

	go func() {
		defer close(s.updates)
		for {
			_, value, err := skafka.ReadNext(readCtx, reader)
			if err != nil {
				s.done <- err
				return
			}

			var u events.OddsUpdate
			if err := json.Unmarshal(value, &u); err != nil {
				c.Log.Warn("invalid kafka message", zap.Error(err))
				continue
			}
			select {
			case s.updates <- u:
			case <-readCtx.Done():
				s.done <- readCtx.Err()
				return
			}
		}
	}()

	c.Log.Info("consuming odds feed from kafka",
		zap.String("topic", c.Topic),
		zap.String("group", c.GroupID),
	)
	return s, nil
}

type kafkaSession struct {
	updates     chan events.OddsUpdate
	done        chan error
	cancel      context.CancelFunc
	closeReader func()
	once        sync.Once
}

func (s *kafkaSession) Updates() <-chan events.OddsUpdate { return s.updates }
func (s *kafkaSession) Done() <-chan error                { return s.done }

func (s *kafkaSession) Close() {
	s.once.Do(func() {
		s.cancel()
		s.closeReader()
	})
}
