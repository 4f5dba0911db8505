package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "triggers"

// MessagePublisher is the subset of *nats.Conn the bridge needs.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// NATSBridge forwards bus topics to NATS subjects named <prefix>.<topic>.
type NATSBridge struct {
	bus    *Bus
	pub    MessagePublisher
	prefix string
	topics []Event

	published atomic.Uint64
	failed    atomic.Uint64
	wg        sync.WaitGroup
}

// NewNATSBridge builds a bridge for the given topics (all topics except
// price ticks when none are given).
func NewNATSBridge(bus *Bus, pub MessagePublisher, prefix string, topics ...Event) *NATSBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if len(topics) == 0 {
		for _, t := range Topics {
			if t != EventPriceTick {
				topics = append(topics, t)
			}
		}
	}
	return &NATSBridge{bus: bus, pub: pub, prefix: prefix, topics: topics}
}

// Subject returns the NATS subject used for topic e.
func (n *NATSBridge) Subject(e Event) string {
	return n.prefix + "." + string(e)
}

// Start subscribes to every configured topic and forwards until ctx is done.
func (n *NATSBridge) Start(ctx context.Context) {
	for _, topic := range n.topics {
		ch, unsub := n.bus.Subscribe(topic, 256)
		n.wg.Add(1)
		go func(topic Event) {
			defer n.wg.Done()
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					n.forward(topic, payload)
				}
			}
		}(topic)
	}
}

// Wait blocks until every forwarding goroutine has exited.
func (n *NATSBridge) Wait() { n.wg.Wait() }

func (n *NATSBridge) forward(topic Event, payload any) {
	data, err := json.Marshal(payload)
	if err == nil {
		err = n.pub.Publish(n.Subject(topic), data)
	}
	if err != nil {
		n.failed.Add(1)
		log.Printf("⚠️  nats publish %s failed: %v", topic, err)
		return
	}
	n.published.Add(1)
}

// Stats returns forwarded and failed message counts.
func (n *NATSBridge) Stats() (published, failed uint64) {
	return n.published.Load(), n.failed.Load()
}

// ConnectNATS dials a NATS server with reconnect handling.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("⚠️  NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}
