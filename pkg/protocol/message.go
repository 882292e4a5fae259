package protocol

import "time"

// Message is a pub/sub delivery. Pattern is empty unless the message matched a
// pattern subscription.
type Message struct {
	Channel string
	Pattern string
	Payload string
}

// PayloadBytes returns a copy of the payload as bytes.
func (m *Message) PayloadBytes() []byte {
	return []byte(m.Payload)
}

// FromPattern reports whether the message was delivered through a pattern subscription.
func (m *Message) FromPattern() bool {
	return m.Pattern != ""
}

// Interrupts is produced by the caller before every blocking read of a fetch
// loop. Stop ends the loop. NextPollingTime bounds the next read; nil selects
// the configured default and a zero duration blocks until a message or a
// connection error arrives.
type Interrupts struct {
	NextPollingTime *time.Duration
	Stop            bool
}

// StopInterrupts returns interrupts that end the fetch loop.
func StopInterrupts() Interrupts {
	return Interrupts{Stop: true}
}

// PollEvery returns interrupts that keep polling with the given read timeout.
func PollEvery(d time.Duration) Interrupts {
	return Interrupts{NextPollingTime: &d}
}

// PollingTime resolves the read timeout for the next iteration.
func (i Interrupts) PollingTime(fallback time.Duration) time.Duration {
	if i.NextPollingTime == nil {
		return fallback
	}
	if *i.NextPollingTime < 0 {
		return 0
	}
	return *i.NextPollingTime
}
