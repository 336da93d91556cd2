// Package events implements the in-process fan-out hub that pushes state
// changes to open dashboard streams. Delivery is best-effort: there is no
// backlog, no replay for late joiners and no retry for slow consumers.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// subscriberBuffer is the per-connection send buffer. A subscriber that
// falls this far behind is considered dead and is dropped.
const subscriberBuffer = 16

// Subscriber is one registered dashboard connection. Messages are fully
// framed server-sent-event payloads, delivered in broadcast order. The
// channel is closed when the subscriber is removed from the broker.
type Subscriber struct {
	ch chan []byte
}

// Messages returns the framed event stream for this subscriber.
func (s *Subscriber) Messages() <-chan []byte {
	return s.ch
}

// Broker multiplexes events to every currently registered subscriber.
// It owns subscriber lifecycle only as far as membership goes: removal is
// triggered by the transport layer observing closure, or by the broker
// itself when a subscriber's buffer overflows.
type Broker struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}

	connections prometheus.Gauge
	broadcasts  *prometheus.CounterVec
}

// NewBroker creates a broker and registers its metrics with reg.
func NewBroker(reg prometheus.Registerer) (*Broker, error) {
	b := &Broker{
		subs: make(map[*Subscriber]struct{}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "event_stream_connections",
			Help: "Number of currently open event-stream connections.",
		}),
		broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_broadcast_total",
				Help: "Total number of events fanned out, by event name.",
			},
			[]string{"event"},
		),
	}

	if err := reg.Register(b.connections); err != nil {
		return nil, err
	}
	if err := reg.Register(b.broadcasts); err != nil {
		return nil, err
	}
	return b, nil
}

// Subscribe registers a new connection. It starts receiving events
// broadcast after this call; there is no backlog replay.
func (b *Broker) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan []byte, subscriberBuffer)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	b.connections.Inc()
	return s
}

// Unsubscribe removes a connection and closes its message channel.
// Safe to call more than once; the transport handler calls it when the
// underlying connection closes.
func (b *Broker) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(s)
}

// Broadcast serializes payload once and delivers the same framed message
// to every registered subscriber. A subscriber that cannot accept the
// message is dropped; delivery to the others is unaffected. The subscriber
// set is frozen for the duration of the call.
func (b *Broker) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("events: marshal %s payload: %v", event, err)
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))

	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- msg:
		default:
			// Buffer full: the consumer stopped draining. Drop it.
			b.removeLocked(s)
		}
	}

	b.broadcasts.WithLabelValues(event).Inc()
}

// Len reports the number of registered subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every subscriber, terminating their streams.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		b.removeLocked(s)
	}
}

// removeLocked deletes and closes a subscriber. The membership check makes
// repeated removal a no-op, so the channel is never closed twice.
func (b *Broker) removeLocked(s *Subscriber) {
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
	b.connections.Dec()
}
