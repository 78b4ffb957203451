// Package mirror republishes confirmed state events to an MQTT broker.
//
// Every bus event becomes one JSON message on <prefix>/<event>, or on
// <prefix>/<event>/<index> for indexed peripherals. Publishing happens on a
// worker goroutine so a slow broker never stalls the command channel.
package mirror

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/eventbus"
)

// QueueSize is the number of messages buffered for the broker. Events
// beyond it are dropped.
const QueueSize = 256

// Publisher sends one message.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type message struct {
	topic   string
	payload []byte
}

// Mirror forwards bus events to a Publisher.
type Mirror struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}
	subs   []*eventbus.Subscription
	once   sync.Once
}

// New subscribes to every event on bus and starts the publish worker.
func New(pub Publisher, prefix string, bus *eventbus.Bus, log zerolog.Logger) *Mirror {
	m := &Mirror{
		pub:    pub,
		prefix: prefix,
		log:    log.With().Str("component", "mirror").Logger(),
		queue:  make(chan message, QueueSize),
		done:   make(chan struct{}),
	}
	for _, name := range eventbus.All {
		m.subs = append(m.subs, bus.Subscribe(name, func(payload any) {
			m.forward(name, payload)
		}))
	}
	go m.run()
	return m
}

// Topic returns the topic of an event.
func Topic(prefix string, name eventbus.Name, index int) string {
	t := prefix + "/" + string(name)
	if index >= 0 {
		t += "/" + strconv.Itoa(index)
	}
	return t
}

func (m *Mirror) forward(name eventbus.Name, payload any) {
	index := -1
	if p, ok := payload.(eventbus.Partial); ok {
		index, payload = p.Index, p.Data
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Warn().Err(err).Str("event", string(name)).Msg("cannot encode event")
		return
	}

	msg := message{topic: Topic(m.prefix, name, index), payload: data}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- msg:
	default:
		m.log.Warn().Str("topic", msg.topic).Msg("mirror queue full, event dropped")
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for msg := range m.queue {
		if err := m.pub.Publish(msg.topic, msg.payload); err != nil {
			m.log.Warn().Err(err).Str("topic", msg.topic).Msg("publish failed")
		}
	}
}

// Close unsubscribes, publishes what is still queued and stops the worker.
func (m *Mirror) Close() {
	m.once.Do(func() {
		for _, s := range m.subs {
			s.Unsubscribe()
		}
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
		<-m.done
	})
}
