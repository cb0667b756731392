package queue

import (
	"context"
	"time"
)

// GameFinishedEvent signals that a game reached final status and its
// pending bets can be settled. Delivery is at-least-once; consumers must
// tolerate duplicates.
type GameFinishedEvent struct {
	GameID     string    `json:"gameId"`
	League     string    `json:"league"`
	FinishedAt time.Time `json:"finishedAt"`
}

// EventSource feeds game-finished events to the settlement orchestrator.
type EventSource interface {
	// Start begins consuming. It blocks until ctx is cancelled or the
	// source fails irrecoverably.
	Start(ctx context.Context) error

	// Events returns the channel the source delivers on. Closed when the
	// source stops.
	Events() <-chan GameFinishedEvent

	Close() error
}

// ChannelSource is an in-process EventSource backed by a plain channel.
// Used by the one-shot settle command and in tests.
type ChannelSource struct {
	ch chan GameFinishedEvent
}

// NewChannelSource creates a ChannelSource with the given buffer size.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan GameFinishedEvent, buffer)}
}

// Publish enqueues an event. Blocks if the buffer is full.
func (s *ChannelSource) Publish(ev GameFinishedEvent) {
	s.ch <- ev
}

// Start blocks until ctx is cancelled.
func (s *ChannelSource) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Events returns the delivery channel.
func (s *ChannelSource) Events() <-chan GameFinishedEvent {
	return s.ch
}

// Close closes the delivery channel. No further Publish calls may follow.
func (s *ChannelSource) Close() error {
	close(s.ch)
	return nil
}
