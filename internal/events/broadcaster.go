package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	JobMessageKind string = "wipeguard.events.job"
	defaultTopic   string = "wipeguard.events"
	eventSource    string = "wipeguard.orchestrator"

	// per-subscriber buffer; a subscriber that falls this far behind is dropped
	subscriberBufferSize = 64
)

// Subscriber is a live observer handle. Close it to unsubscribe.
type Subscriber struct {
	id     uuid.UUID
	filter string
	ch     chan JobEvent

	b *Broadcaster
}

// Events returns the subscriber's event stream. The channel is closed when
// the subscriber is dropped or closes itself.
func (s *Subscriber) Events() <-chan JobEvent {
	return s.ch
}

func (s *Subscriber) Close() {
	s.b.unsubscribe(s.id)
}

// Broadcaster fans job events out to live subscribers, best-effort and
// at-most-once per subscriber. Each event is also mirrored to the configured
// Writer through an unbounded buffer so a slow writer never blocks a publish.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscriber

	firehose         *buffer
	startConsumingCh chan any
	doneCh           chan any
	writer           Writer
	topic            string
}

type BroadcasterOption func(b *Broadcaster)

func WithOutputTopic(topic string) BroadcasterOption {
	return func(b *Broadcaster) {
		b.topic = topic
	}
}

func NewBroadcaster(w Writer, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subs:             make(map[uuid.UUID]*Subscriber),
		firehose:         newBuffer(),
		startConsumingCh: make(chan any, 1),
		doneCh:           make(chan any),
		writer:           w,
		topic:            defaultTopic,
	}

	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

// Subscribe registers an observer. An empty filter matches every channel.
func (b *Broadcaster) Subscribe(channelFilter string) *Subscriber {
	sub := &Subscriber{
		id:     uuid.New(),
		filter: channelFilter,
		ch:     make(chan JobEvent, subscriberBufferSize),
		b:      b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub
}

// Publish delivers the event to every subscriber whose filter matches the
// event's channel. A subscriber with a full buffer is dropped rather than
// blocking the publisher.
func (b *Broadcaster) Publish(e JobEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	for id, sub := range b.subs {
		if !matches(sub.filter, e.Channel) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			zap.S().Named("broadcaster").Warnw("dropping slow subscriber", "subscriber_id", id, "filter", sub.filter)
			close(sub.ch)
			delete(b.subs, id)
		}
	}
	b.mu.Unlock()

	b.mirror(e)
}

// Close flushes nothing: pending firehose messages are abandoned, the writer
// is closed with a bounded timeout.
func (b *Broadcaster) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b.doneCh <- struct{}{}
	if err := b.writer.Close(closeCtx); err != nil {
		zap.S().Named("broadcaster").Errorf("event writer closed with error: %s", err)
		return err
	}

	b.mu.Lock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	zap.S().Named("broadcaster").Info("broadcaster closed")
	return nil
}

func (b *Broadcaster) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (b *Broadcaster) mirror(e JobEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	prevSize := b.firehose.Size()
	b.firehose.PushBack(&message{
		Kind: JobMessageKind,
		Data: data,
	})

	if prevSize == 0 {
		// unblock the consumer and start writing messages; the channel holds
		// one pending wakeup so a signal raced against the consumer's empty
		// check is kept rather than lost
		select {
		case b.startConsumingCh <- struct{}{}:
		default:
		}
	}
}

func (b *Broadcaster) run() {
	for {
		select {
		case <-b.doneCh:
			return
		default:
		}

		if b.firehose.Size() == 0 {
			select {
			case <-b.startConsumingCh:
			case <-b.doneCh:
				return
			}
		}

		msg := b.firehose.Pop()
		if msg == nil {
			continue
		}

		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource(eventSource)
		e.SetType(msg.Kind)
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

		if err := b.writer.Write(context.TODO(), b.topic, e); err != nil {
			zap.S().Named("broadcaster").Errorw("failed to write event", "error", err, "event", e)
		}
	}
}

// matches implements the subscription filter: an empty filter sees
// everything, an event without a channel reaches everyone.
func matches(filter, channel string) bool {
	if filter == "" || channel == "" {
		return true
	}
	return filter == channel
}
