package events

import "sync"

type message struct {
	Kind string
	Data []byte
	prev *message
}

// buffer is the unbounded FIFO between Publish and the firehose consumer,
// a singly linked list so a slow writer only costs memory, never a blocked
// publisher.
type buffer struct {
	lock sync.Mutex
	head *message
	tail *message
	size int
}

func newBuffer() *buffer {
	return &buffer{}
}

func (b *buffer) PushBack(msg *message) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		b.head = msg
		b.tail = msg
	} else {
		b.tail.prev = msg
		b.tail = msg
	}
	b.size++
}

// Pop removes and returns the oldest message, or nil on an empty buffer.
func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	msg := b.head
	if msg == nil {
		return nil
	}
	b.head = msg.prev
	if b.head == nil {
		b.tail = nil
	}
	b.size--
	return msg
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}
