// Package broadcaster drains the durable event outbox to Kafka. Records are
// flipped to SENT before the publish attempt and deleted only after the
// broker acknowledges, so a crash can duplicate an event but never lose one.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"bazaar/infra/outbox"
)

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(ob *outbox.Outbox, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(rec outbox.Record) error {
		now := time.Now().Unix()
		if err := b.outbox.MarkSent(rec, now); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed",
				zap.Uint64("seq", rec.Seq),
				zap.Error(err),
			)
			return b.outbox.MarkFailed(rec, now)
		}
		return b.outbox.Ack(rec)
	})
	if err != nil {
		b.log.Error("outbox drain failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
