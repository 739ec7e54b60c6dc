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
	"errors"
	"time"
)

// Intent is the closed set of routing labels produced by the supervisor.
type Intent string

const (
	IntentEligibility Intent = "eligibility"
	IntentFNOL        Intent = "fnol"
	IntentClaimStatus Intent = "claim_status"
	IntentGeneral     Intent = "general"
	IntentEscalate    Intent = "escalate"

	// IntentBlocked marks turns short-circuited by the topic guardrail.
	// It is never produced by classification.
	IntentBlocked Intent = "blocked"
)

// ValidIntent reports whether s names a classifiable intent.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentEligibility, IntentFNOL, IntentClaimStatus, IntentGeneral, IntentEscalate:
		return true
	}
	return false
}

// Sentiment is the closed set of member emotional states.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentConcerned  Sentiment = "concerned"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentAngry      Sentiment = "angry"
)

// ValidSentiment reports whether s names a known sentiment.
func ValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentConcerned, SentimentFrustrated, SentimentAngry:
		return true
	}
	return false
}

// Message roles. The conversation log holds exactly these two.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's append-only conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TraceStep types.
const (
	StepSupervisor = "supervisor"
	StepRouting    = "routing"
	StepToolCall   = "tool_call"
	StepRAGSearch  = "rag_search"
	StepSpecialist = "specialist"
	StepGuardrail  = "guardrail"
	StepEscalation = "escalation"
)

// TraceStep statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWarning = "warning"
	StatusBlocked = "blocked"
	StatusSkipped = "skipped"
)

// TraceStep is one observable unit of work within a turn. Steps are
// appended in causal order and never mutated after creation.
type TraceStep struct {
	Name       string         `json:"name"`
	StepType   string         `json:"step_type"`
	DurationMS int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
}

// ToolCall records one tool invocation, immutable once recorded.
type ToolCall struct {
	ToolName   string         `json:"tool"`
	ToolInput  map[string]any `json:"input"`
	ToolOutput map[string]any `json:"output,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// RAGSource is one retrieved knowledge chunk attached to a response.
type RAGSource struct {
	ChunkText      string  `json:"chunk_text"`
	SourceDoc      string  `json:"source_doc"`
	Heading        string  `json:"heading"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AgentResponse is the specialist path's output contract for one turn.
type AgentResponse struct {
	Text             string
	Intent           Intent
	AgentName        string
	ToolsCalled      []ToolCall
	RAGSources       []RAGSource
	TraceSteps       []TraceStep
	Escalated        bool
	EscalationReason string
	Confidence       float64
	LatencyMS        int64

	// Stage timings feeding the turn's latency breakdown.
	ToolsMS      int64
	GenerationMS int64
}

// HandoffContext is the derived summary handed to a human operator when
// a turn escalates. Built per turn, never persisted.
type HandoffContext struct {
	Summary       string   `json:"summary"`
	Intent        string   `json:"intent"`
	ActionsTaken  []string `json:"actions_taken"`
	OpenQuestions []string `json:"open_questions"`
	RetrievedDocs []string `json:"retrieved_docs"`
	Sentiment     string   `json:"sentiment"`
}

// AuditEntry is one redacted record of a completed turn.
type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	MemberID    string    `json:"member_id"`
	Turn        int       `json:"turn"`
	UserMessage string    `json:"user_message"`
	Intent      string    `json:"intent"`
	Agent       string    `json:"agent"`
	ToolsCalled []string  `json:"tools_called"`
	RAGSources  []string  `json:"rag_sources"`
	Response    string    `json:"response"`
	LatencyMS   int64     `json:"latency_ms"`
	Sentiment   string    `json:"sentiment"`
}

// ReviewItem is a turn flagged for human review.
type ReviewItem struct {
	Turn            int       `json:"turn"`
	Intent          string    `json:"intent"`
	Confidence      float64   `json:"confidence"`
	ResponsePreview string    `json:"response_preview"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
}

// RAGRecord is a retrieval hit stored on the session for the agent
// desktop, tagged with the turn and intent that produced it.
type RAGRecord struct {
	SourceDoc      string  `json:"source_doc"`
	Heading        string  `json:"heading"`
	ChunkText      string  `json:"chunk_text"`
	RelevanceScore float64 `json:"relevance_score"`
	Turn           int     `json:"turn"`
	Intent         string  `json:"intent"`
}

// GuardrailFlag describes a guardrail trigger surfaced on the turn result.
type GuardrailFlag struct {
	Type    string   `json:"type"`
	Details []string `json:"details,omitempty"`
	Topic   string   `json:"topic,omitempty"`
	Action  string   `json:"action"`
}

// LatencyBreakdown splits total turn latency by pipeline stage.
type LatencyBreakdown struct {
	ClassificationMS int64 `json:"classification_ms"`
	ToolsMS          int64 `json:"tools_ms"`
	GenerationMS     int64 `json:"generation_ms"`
	GuardrailsMS     int64 `json:"guardrails_ms"`
}

// TurnResult bundles everything the transport layer needs to answer one
// member turn.
type TurnResult struct {
	Response         string           `json:"response"`
	Intent           Intent           `json:"intent"`
	Agent            string           `json:"agent"`
	ToolsCalled      []ToolCall       `json:"tools_called"`
	RAGSources       []RAGSource      `json:"rag_sources"`
	TraceSteps       []TraceStep      `json:"trace_steps"`
	Escalated        bool             `json:"escalated"`
	EscalationReason string           `json:"escalation_reason,omitempty"`
	HandoffContext   *HandoffContext  `json:"handoff_context,omitempty"`
	Confidence       float64          `json:"confidence"`
	Sentiment        Sentiment        `json:"sentiment"`
	LatencyMS        int64            `json:"latency_ms"`
	LatencyBreakdown LatencyBreakdown `json:"latency_breakdown"`
	GuardrailFlags   []GuardrailFlag  `json:"guardrail_flags"`
}

// Error taxonomy. Validation failures surface to the caller immediately
// with no session mutation; everything else is recovered inside the turn.
var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrMemberNotFound  = errors.New("member not found")
	ErrUnknownTool     = errors.New("unknown tool")
)
