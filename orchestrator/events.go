// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"sync"
	"time"
)

// Event kinds broadcast to session observers during turn processing.
const (
	EventProcessingStarted = "processing_started"
	EventIntentClassified  = "intent_classified"
	EventResponseReady     = "response_ready"
)

// Event is one progress notification for a session's observers.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	SessionID string         `json:"session_id"`
	Kind      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventBus broadcasts turn-progress events to per-session subscribers
// (the agent desktop's live view). Delivery is best effort: a slow
// subscriber misses events rather than delaying the turn, and
// publishing on a nil bus is a no-op.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
	// recvToSend maps the receive-only channel handed to a subscriber
	// back to the send channel so Unsubscribe can accept the caller's
	// view of the channel.
	recvToSend map[<-chan Event]chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		subs:       make(map[string]map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to every subscriber of the session. Full
// subscriber buffers drop the event for that subscriber.
func (b *EventBus) Publish(sessionID, kind string, data map[string]any) {
	if b == nil {
		return
	}
	e := Event{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Kind:      kind,
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers an observer for one session's events. The caller
// must Unsubscribe when done.
func (b *EventBus) Subscribe(sessionID string, bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Calling it
// twice with the same channel is a no-op.
func (b *EventBus) Unsubscribe(sessionID string, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs[sessionID], sendCh)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount reports active subscribers for a session.
func (b *EventBus) SubscriberCount(sessionID string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
