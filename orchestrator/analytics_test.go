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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotMergesBaseline(t *testing.T) {
	a := NewAnalytics()
	a.RecordSessionStart()
	a.RecordTurn(&TurnResult{
		Intent:    IntentFNOL,
		Sentiment: SentimentConcerned,
		ToolsCalled: []ToolCall{
			{ToolName: ToolCreateFNOL, ToolOutput: map[string]any{"status": "filed"}},
		},
		LatencyMS: 1200,
		Escalated: false,
	})

	snap := a.Snapshot(1)
	assert.Equal(t, 1248, snap["total_conversations"])
	assert.Equal(t, 1, snap["active_sessions"])
	assert.Equal(t, 1, snap["live_session_turns"])
	assert.Equal(t, 73, snap["containment_rate"])

	dist, ok := snap["intent_distribution"].([]map[string]any)
	require.True(t, ok)
	var fnolCount int
	for _, row := range dist {
		if row["intent"] == "fnol" {
			fnolCount = row["count"].(int)
		}
	}
	assert.Equal(t, 288, fnolCount)
}

func TestSnapshotEscalationNudgesKPIs(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 5; i++ {
		a.RecordTurn(&TurnResult{
			Intent:    IntentEscalate,
			Sentiment: SentimentAngry,
			Escalated: true,
		})
	}

	snap := a.Snapshot(0)
	assert.Equal(t, 68, snap["containment_rate"])
	assert.Equal(t, 13, snap["escalation_rate"])
}

func TestSnapshotKPIFloorsAndCeilings(t *testing.T) {
	a := NewAnalytics()
	for i := 0; i < 40; i++ {
		a.RecordTurn(&TurnResult{Intent: IntentEscalate, Sentiment: SentimentAngry, Escalated: true})
	}

	snap := a.Snapshot(0)
	assert.Equal(t, 60, snap["containment_rate"])
	assert.Equal(t, 25, snap["escalation_rate"])
}

func TestSnapshotIncludesLiveOnlyTools(t *testing.T) {
	a := NewAnalytics()
	a.RecordTurn(&TurnResult{
		Intent:    IntentGeneral,
		Sentiment: SentimentNeutral,
		ToolsCalled: []ToolCall{
			{ToolName: "some_new_tool", ToolOutput: map[string]any{"ok": true}},
		},
	})

	freq, ok := a.Snapshot(0)["tool_call_frequency"].([]map[string]any)
	require.True(t, ok)
	var found bool
	for _, row := range freq {
		if row["tool"] == "some_new_tool" {
			found = true
			assert.Equal(t, 1, row["count"])
		}
	}
	assert.True(t, found)
}

func TestRecordTurnConcurrent(t *testing.T) {
	a := NewAnalytics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.RecordTurn(&TurnResult{Intent: IntentGeneral, Sentiment: SentimentNeutral, LatencyMS: 10})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, a.Snapshot(0)["live_session_turns"])
}
