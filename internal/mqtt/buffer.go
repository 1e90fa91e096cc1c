package mqtt

import "github.com/rs/zerolog"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published while the broker is
// unreachable. Callers synchronize access.
type ringBuffer struct {
	slots   []bufferedMsg
	start   int // oldest message
	count   int
	dropped int // messages overwritten since the last drain
	logger  zerolog.Logger
}

func newRingBuffer(capacity int, logger zerolog.Logger) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, capacity), logger: logger}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	capacity := len(r.slots)
	if r.count < capacity {
		r.slots[(r.start+r.count)%capacity] = msg
		r.count++
		return
	}

	if r.dropped == 0 {
		r.logger.Warn().Int("capacity", capacity).Msg("MQTT buffer full, dropping oldest messages")
	}
	r.slots[r.start] = msg
	r.start = (r.start + 1) % capacity
	r.dropped++
}

// drain returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drain() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.slots[(r.start+i)%len(r.slots)])
	}
	if r.dropped > 0 {
		r.logger.Warn().Int("dropped", r.dropped).Int("replayed", r.count).Msg("MQTT buffer overflowed while offline")
	}

	r.start, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
