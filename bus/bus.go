// Package bus is a small in-process publish/subscribe broker used to fan
// sensor readings out to local consumers (exporters, publishers, consoles).
// Topics are exact token paths; a message may be retained so that a late
// subscriber still observes the last value on its topic.
package bus

import (
	"strings"
	"sync"
)

// Topic is a sequence of path tokens, e.g. T("baro", "value", "pressure").
type Topic []string

// T builds a Topic from tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

func (t Topic) key() string { return strings.Join(t, "/") }

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// entry is the per-topic state: its subscribers and the retained message,
// if any. An entry with neither is removed from the table.
type entry struct {
	subs     []*Subscription
	retained *Message
}

type Bus struct {
	mu     sync.Mutex
	topics map[string]*entry
	qLen   int
}

// NewBus creates a bus whose subscriptions buffer up to queueLen messages.
// A full subscription drops its oldest message rather than blocking the
// publisher.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{topics: make(map[string]*entry), qLen: queueLen}
}

// Publish delivers a message to all subscribers of its exact topic. On a
// retained message a nil payload clears the retained value.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := msg.Topic.key()
	e := b.topics[key]
	if e == nil {
		if !msg.Retained || msg.Payload == nil {
			return
		}
		e = &entry{}
		b.topics[key] = e
	}

	for _, sub := range e.subs {
		deliver(sub.ch, msg)
	}

	if msg.Retained {
		if msg.Payload == nil {
			e.retained = nil
			b.prune(key, e)
		} else {
			e.retained = msg
		}
	}
}

// deliver enqueues without ever blocking the publisher: a full queue loses
// its oldest message first.
func deliver(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
	default:
		<-ch
		ch <- msg
	}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sub.topic.key()
	e := b.topics[key]
	if e == nil {
		e = &entry{}
		b.topics[key] = e
	}
	e.subs = append(e.subs, sub)

	if e.retained != nil {
		deliver(sub.ch, e.retained)
	}
}

func (b *Bus) removeSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := sub.topic.key()
	e := b.topics[key]
	if e == nil {
		return
	}
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	b.prune(key, e)
}

func (b *Bus) prune(key string, e *entry) {
	if len(e.subs) == 0 && e.retained == nil {
		delete(b.topics, key)
	}
}

// Connection groups subscriptions so a component can disconnect as a unit.
type Connection struct {
	bus  *Bus
	name string

	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(name string) *Connection {
	return &Connection{bus: b, name: name}
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// NewMessage is a convenience constructor.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.removeSubscription(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions owned by this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.removeSubscription(sub)
		close(sub.ch)
	}
}
