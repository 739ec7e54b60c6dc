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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octank/virtual-agent/rag"
)

// testPipeline wires an orchestrator with scripted model behavior.
// supervisorScript drives classification, loopScript drives the agent
// loop; both default to sensible text-only behavior.
func testPipeline(t *testing.T, supervisorScript, loopScript []stubResponse) (*Orchestrator, *Session, *stubProvider, *stubProvider) {
	t.Helper()

	directory := NewMemberDirectory(map[string]Member{
		"M1001": {
			MemberID:     "M1001",
			Name:         "Sarah Chen",
			PolicyNumber: "POL-88421",
			PolicyType:   "auto",
			Phone:        "555-0142",
		},
	})
	claims := NewClaimsStore(map[string]Claim{})
	retriever := rag.NewRetriever(3)
	registry := NewToolRegistry(directory, claims, retriever, 3)

	cfg := DefaultConfig()
	cfg.MaxAgentSteps = 3

	supProvider := newStubProvider(supervisorScript...)
	loopProvider := newStubProvider(loopScript...)

	store := NewMemoryStore(directory, 30*time.Minute)
	orch := NewOrchestrator(
		store,
		NewSupervisor(supProvider, cfg.SupervisorModel),
		NewAgentLoop(loopProvider, registry, &cfg),
		registry,
		NewGuardrailFilter(),
		NewAnalytics(),
		NopSink{},
		NewEventBus(),
	)

	session, err := orch.StartSession("M1001")
	require.NoError(t, err)
	return orch, session, supProvider, loopProvider
}

func TestProcessTurnEmptyMessage(t *testing.T) {
	orch, session, _, _ := testPipeline(t, nil, nil)

	_, err := orch.ProcessTurn(context.Background(), session.SessionID, "   \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, session.TurnCount)
	assert.Empty(t, session.Messages)
}

func TestProcessTurnUnknownSession(t *testing.T) {
	orch, _, _, _ := testPipeline(t, nil, nil)

	_, err := orch.ProcessTurn(context.Background(), "sess_nope", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProcessTurnBlockedTopic(t *testing.T) {
	orch, session, supProvider, loopProvider := testPipeline(t, nil, nil)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "Should I sue the other driver?")
	require.NoError(t, err)

	assert.Equal(t, IntentBlocked, result.Intent)
	assert.Equal(t, "guardrails", result.Agent)
	assert.Equal(t, BlockedTopicMessage, result.Response)
	assert.Empty(t, result.ToolsCalled)

	// Classification and the loop never ran.
	assert.Zero(t, supProvider.callCount())
	assert.Zero(t, loopProvider.callCount())

	// The turn is still in the session and audit trail.
	require.Len(t, session.Messages, 2)
	assert.Equal(t, BlockedTopicMessage, session.Messages[1].Content)
	require.Len(t, session.AuditLog, 1)
	assert.Equal(t, "blocked", session.AuditLog[0].Intent)

	var flagged bool
	for _, f := range result.GuardrailFlags {
		if f.Type == "topic_blocked" {
			flagged = true
			assert.Equal(t, "legal_advice", f.Topic)
		}
	}
	assert.True(t, flagged)
}

func TestProcessTurnPIIFlaggedNotBlocked(t *testing.T) {
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse("Thanks, I've noted your information.")},
	)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "my SSN is 123-45-6789")
	require.NoError(t, err)

	// Routed normally.
	assert.Equal(t, IntentGeneral, result.Intent)
	assert.Equal(t, "Thanks, I've noted your information.", result.Response)

	require.Len(t, result.GuardrailFlags, 1)
	assert.Equal(t, "pii_detected", result.GuardrailFlags[0].Type)
	assert.Contains(t, result.GuardrailFlags[0].Details, "SSN")

	// Audit copy is redacted; the live message list is not.
	require.Len(t, session.AuditLog, 1)
	assert.NotContains(t, session.AuditLog[0].UserMessage, "123-45-6789")
	assert.Contains(t, session.AuditLog[0].UserMessage, "[SSN REDACTED]")
	assert.Contains(t, session.Messages[0].Content, "123-45-6789")
}

func TestProcessTurnKeywordRoutesToFNOL(t *testing.T) {
	orch, session, supProvider, _ := testPipeline(t,
		nil,
		[]stubResponse{textResponse("I'm sorry to hear that. When did the accident happen?")},
	)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "I was in a car accident yesterday, nobody was hurt")
	require.NoError(t, err)

	assert.Equal(t, IntentFNOL, result.Intent)
	assert.Equal(t, "fnol_agent", result.Agent)
	assert.Equal(t, SentimentConcerned, result.Sentiment)
	// Keyword rule classified without a model call.
	assert.Zero(t, supProvider.callCount())

	assert.Equal(t, "fnol", session.CurrentIntent)
	assert.Equal(t, "fnol_agent", session.CurrentAgent)
	require.Len(t, session.SentimentHistory, 1)
}

func TestProcessTurnTurnCountInvariant(t *testing.T) {
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse("Happy to help!")},
	)

	for i := 0; i < 3; i++ {
		_, err := orch.ProcessTurn(context.Background(), session.SessionID, "hello there")
		require.NoError(t, err)
	}

	users := 0
	for _, m := range session.Messages {
		if m.Role == RoleUser {
			users++
		}
	}
	assert.Equal(t, 3, session.TurnCount)
	assert.Equal(t, users, session.TurnCount)
}

func TestProcessTurnEscalateDirectPath(t *testing.T) {
	orch, session, _, loopProvider := testPipeline(t, nil, nil)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "I want to talk to a human")
	require.NoError(t, err)

	assert.Equal(t, IntentEscalate, result.Intent)
	assert.Equal(t, "escalation_handler", result.Agent)
	assert.True(t, result.Escalated)
	assert.Equal(t, ReasonMemberRequest, result.EscalationReason)
	require.NotNil(t, result.HandoffContext)
	assert.Contains(t, result.HandoffContext.ActionsTaken, ToolEscalateToHuman)

	// The loop is bypassed entirely.
	assert.Zero(t, loopProvider.callCount())

	// Session escalation is monotonic.
	assert.True(t, session.Escalated)
}

func TestProcessTurnEscalationStaysSticky(t *testing.T) {
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse("Sure, happy to help with that.")},
	)
	session.Escalated = true

	_, err := orch.ProcessTurn(context.Background(), session.SessionID, "actually, one more question")
	require.NoError(t, err)
	assert.True(t, session.Escalated)
}

func TestProcessTurnLowConfidenceQueuesReview(t *testing.T) {
	hedged := "I'm not sure but I think it might be covered. This is just my guess though."
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse(hedged)},
	)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "is windshield glass included?")
	require.NoError(t, err)

	assert.Less(t, result.Confidence, 0.7)
	require.Len(t, session.ReviewQueue, 1)
	assert.Equal(t, "low_confidence", session.ReviewQueue[0].Reason)
	assert.Equal(t, 1, session.ReviewQueue[0].Turn)
}

func TestProcessTurnLatencyBreakdown(t *testing.T) {
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse("Here's your answer.")},
	)

	result, err := orch.ProcessTurn(context.Background(), session.SessionID, "what are your hours?")
	require.NoError(t, err)

	b := result.LatencyBreakdown
	assert.GreaterOrEqual(t, result.LatencyMS, int64(0))
	assert.GreaterOrEqual(t, b.ClassificationMS, int64(0))
	assert.GreaterOrEqual(t, b.GenerationMS, int64(0))
	assert.Zero(t, b.ToolsMS)
}

func TestProcessTurnEventsPublished(t *testing.T) {
	orch, session, _, _ := testPipeline(t,
		[]stubResponse{classifyResponse("general", 0.8, "neutral")},
		[]stubResponse{textResponse("Hello!")},
	)

	ch := orch.events.Subscribe(session.SessionID, 16)
	defer orch.events.Unsubscribe(session.SessionID, ch)

	_, err := orch.ProcessTurn(context.Background(), session.SessionID, "hi")
	require.NoError(t, err)

	var kinds []string
	for len(ch) > 0 {
		kinds = append(kinds, (<-ch).Kind)
	}
	assert.Equal(t, []string{EventProcessingStarted, EventIntentClassified, EventResponseReady}, kinds)
}

func TestStartSessionUnknownMember(t *testing.T) {
	orch, _, _, _ := testPipeline(t, nil, nil)

	_, err := orch.StartSession("M9999")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
