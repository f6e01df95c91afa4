// Package hooks notifies registered listener endpoints about marketplace
// events. Listeners are a bounded admin-managed list of Kafka topics; each
// is notified independently and a listener failure never rolls back the
// state change it describes.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Notifier struct {
	brokers []string
	log     *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewNotifier(brokers []string, listeners []string, log *zap.Logger) *Notifier {
	n := &Notifier{
		brokers: brokers,
		log:     log,
		writers: make(map[string]*kafka.Writer),
	}
	n.SetListeners(listeners)
	return n
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// SetListeners replaces the registered listener set.
func (n *Notifier) SetListeners(topics []string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	keep := make(map[string]bool, len(topics))
	for _, t := range topics {
		keep[t] = true
		if _, ok := n.writers[t]; !ok {
			n.writers[t] = newWriter(n.brokers, t)
		}
	}
	for t, w := range n.writers {
		if !keep[t] {
			_ = w.Close()
			delete(n.writers, t)
		}
	}
}

// Listeners returns the registered topics.
func (n *Notifier) Listeners() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.writers))
	for t := range n.writers {
		out = append(out, t)
	}
	return out
}

// Notify fans a payload out to every listener. Failures are reported per
// listener and do not stop the fan-out.
func (n *Notifier) Notify(ctx context.Context, key, payload []byte) {
	n.mu.Lock()
	writers := make(map[string]*kafka.Writer, len(n.writers))
	for t, w := range n.writers {
		writers[t] = w
	}
	n.mu.Unlock()

	for topic, w := range writers {
		err := w.WriteMessages(ctx, kafka.Message{Key: key, Value: payload})
		if err != nil {
			n.log.Warn("hook notify failed",
				zap.String("listener", topic),
				zap.Error(err),
			)
		}
	}
}

func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for t, w := range n.writers {
		_ = w.Close()
		delete(n.writers, t)
	}
}
