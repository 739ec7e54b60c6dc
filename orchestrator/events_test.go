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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSessionScoping(t *testing.T) {
	bus := NewEventBus()
	chA := bus.Subscribe("sess_a", 4)
	chB := bus.Subscribe("sess_b", 4)

	bus.Publish("sess_a", EventProcessingStarted, map[string]any{"message": "hi"})

	select {
	case e := <-chA:
		assert.Equal(t, EventProcessingStarted, e.Kind)
		assert.Equal(t, "sess_a", e.SessionID)
	default:
		t.Fatal("subscriber for sess_a received nothing")
	}

	select {
	case e := <-chB:
		t.Fatalf("subscriber for sess_b received %v", e)
	default:
	}

	bus.Unsubscribe("sess_a", chA)
	bus.Unsubscribe("sess_b", chB)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("sess_a", 1)

	bus.Publish("sess_a", EventProcessingStarted, nil)
	bus.Publish("sess_a", EventIntentClassified, nil)
	bus.Publish("sess_a", EventResponseReady, nil)

	// Buffer of one: later events were dropped, never blocked.
	e := <-ch
	assert.Equal(t, EventProcessingStarted, e.Kind)
	select {
	case e := <-ch:
		t.Fatalf("expected dropped events, got %v", e)
	default:
	}

	bus.Unsubscribe("sess_a", ch)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("sess_a", 1)
	bus.Unsubscribe("sess_a", ch)

	_, open := <-ch
	require.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount("sess_a"))

	// Double unsubscribe is a no-op.
	bus.Unsubscribe("sess_a", ch)
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	bus.Publish("sess_a", EventResponseReady, nil)
	assert.Equal(t, 0, bus.SubscriberCount("sess_a"))
}
