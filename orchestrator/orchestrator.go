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
	"fmt"
	"strings"
	"time"

	"octank/virtual-agent/shared/logger"
)

// Orchestrator composes guardrails, classification, routing, the agent
// loop, and session mutation into one end-to-end turn.
type Orchestrator struct {
	store      SessionStore
	supervisor *Supervisor
	loop       *AgentLoop
	registry   *ToolRegistry
	guardrails *GuardrailFilter
	analytics  *Analytics
	audit      AuditSink
	events     *EventBus
	log        *logger.Logger
}

func NewOrchestrator(
	store SessionStore,
	supervisor *Supervisor,
	loop *AgentLoop,
	registry *ToolRegistry,
	guardrails *GuardrailFilter,
	analytics *Analytics,
	audit AuditSink,
	events *EventBus,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		supervisor: supervisor,
		loop:       loop,
		registry:   registry,
		guardrails: guardrails,
		analytics:  analytics,
		audit:      audit,
		events:     events,
		log:        logger.New("orchestrator"),
	}
}

// StartSession creates a session for a known member.
func (o *Orchestrator) StartSession(memberID string) (*Session, error) {
	session, err := o.store.Create(memberID)
	if err != nil {
		return nil, err
	}
	o.analytics.RecordSessionStart()
	o.log.Info(session.SessionID, "", "session started", map[string]any{"member_id": memberID})
	return session, nil
}

// ProcessTurn runs one member turn through the full pipeline:
// pre-guardrails, classification, routing, the tool-use loop,
// post-guardrails, session mutation, audit, analytics.
//
// Validation failures (empty text, unknown session) return an error
// with no session mutation. Everything past validation degrades inside
// the turn and always yields a TurnResult.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, memberText string) (*TurnResult, error) {
	userMessage := strings.TrimSpace(memberText)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}
	session, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	// Pre-check: PII is flagged and redacted in logs, never blocking.
	var guardrailFlags []GuardrailFlag
	piiFound := o.guardrails.DetectPII(userMessage)
	if len(piiFound) > 0 {
		guardrailFlags = append(guardrailFlags, GuardrailFlag{
			Type:    "pii_detected",
			Details: piiCategoryNames(piiFound),
			Action:  "redacted_in_logs",
		})
	}

	// Pre-check: blocked topics short-circuit the whole turn.
	if blocked, topic := o.guardrails.CheckBlockedTopics(userMessage); blocked {
		return o.finishBlockedTurn(session, userMessage, topic, piiFound, guardrailFlags), nil
	}

	session.AddMessage(RoleUser, userMessage)
	start := time.Now()

	o.events.Publish(session.SessionID, EventProcessingStarted, map[string]any{
		"message": userMessage,
	})

	// 1. Classify via supervisor.
	history := session.History()
	supervisorStart := time.Now()
	verdict := o.supervisor.Classify(ctx, history, session.CurrentAgent)
	supervisorMS := time.Since(supervisorStart).Milliseconds()

	session.SentimentHistory = append(session.SentimentHistory, verdict.Sentiment)

	traceSteps := []TraceStep{
		{
			Name:       "Supervisor Classification",
			StepType:   StepSupervisor,
			DurationMS: supervisorMS,
			Status:     StatusSuccess,
			Details: map[string]any{
				"intent":     string(verdict.Intent),
				"confidence": verdict.Confidence,
				"sentiment":  string(verdict.Sentiment),
				"reasoning":  verdict.Reasoning,
			},
		},
	}

	o.events.Publish(session.SessionID, EventIntentClassified, map[string]any{
		"intent":        string(verdict.Intent),
		"confidence":    verdict.Confidence,
		"reasoning":     verdict.Reasoning,
		"sentiment":     string(verdict.Sentiment),
		"supervisor_ms": supervisorMS,
	})

	// 2. Route and execute.
	var agentResp AgentResponse
	if verdict.Intent == IntentEscalate {
		agentResp = o.handleEscalation(ctx, history)
	} else {
		spec, ok := SpecialistFor(verdict.Intent)
		if !ok {
			spec = generalSpecialist
		}
		traceSteps = append(traceSteps, TraceStep{
			Name:     "Routing Decision",
			StepType: StepRouting,
			Status:   StatusSuccess,
			Details:  map[string]any{"selected_agent": spec.Name, "intent": string(verdict.Intent)},
		})
		agentResp = o.loop.Run(ctx, spec, session.Member, history)
	}

	allSteps := append(traceSteps, agentResp.TraceSteps...)
	if len(piiFound) > 0 {
		allSteps = append([]TraceStep{{
			Name:     "PII Detection",
			StepType: StepGuardrail,
			Status:   StatusWarning,
			Details:  map[string]any{"pii_types": piiCategoryNames(piiFound), "action": "redacted_in_logs"},
		}}, allSteps...)
	}

	// 3. Post-check: score the outgoing text for hedging.
	guardrailStart := time.Now()
	valid, respConfidence := o.guardrails.ValidateResponse(agentResp.Text)
	guardrailMS := time.Since(guardrailStart).Milliseconds()
	guardrailStatus := StatusSuccess
	if !valid {
		guardrailStatus = StatusWarning
	}
	allSteps = append(allSteps, TraceStep{
		Name:       "Response Guardrails",
		StepType:   StepGuardrail,
		DurationMS: guardrailMS,
		Status:     guardrailStatus,
		Details:    map[string]any{"valid": valid, "confidence": round2(respConfidence)},
	})
	confidence := respConfidence

	// 4. Mutate session.
	session.CurrentIntent = string(verdict.Intent)
	session.CurrentAgent = agentResp.AgentName
	session.AddMessage(RoleAssistant, agentResp.Text)
	if agentResp.Escalated {
		session.Escalated = true
	}
	for _, tc := range agentResp.ToolsCalled {
		session.ToolsCalled = append(session.ToolsCalled, tc.ToolName)
	}
	for _, rs := range agentResp.RAGSources {
		session.RAGHistory = append(session.RAGHistory, RAGRecord{
			SourceDoc:      rs.SourceDoc,
			Heading:        rs.Heading,
			ChunkText:      rs.ChunkText,
			RelevanceScore: rs.RelevanceScore,
			Turn:           session.TurnCount,
			Intent:         string(verdict.Intent),
		})
	}

	// 5. Hand-off package when escalated.
	var handoff *HandoffContext
	if agentResp.Escalated {
		handoff = &HandoffContext{
			Summary:       agentResp.EscalationReason,
			Intent:        string(verdict.Intent),
			ActionsTaken:  toolNames(agentResp.ToolsCalled),
			OpenQuestions: []string{},
			RetrievedDocs: sourceDocs(agentResp.RAGSources),
			Sentiment:     string(verdict.Sentiment),
		}
		allSteps = append(allSteps, TraceStep{
			Name:     "Escalation Handoff",
			StepType: StepEscalation,
			Status:   StatusSuccess,
			Details:  map[string]any{"reason": agentResp.EscalationReason, "sentiment": string(verdict.Sentiment)},
		})
	}

	// 6. Latency breakdown. The loop reports its own stage timings; the
	// direct escalation path only has tool-call durations.
	latency := time.Since(start).Milliseconds()
	toolsMS := agentResp.ToolsMS
	if toolsMS == 0 {
		for _, tc := range agentResp.ToolsCalled {
			toolsMS += tc.DurationMS
		}
	}
	generationMS := agentResp.GenerationMS
	if generationMS == 0 {
		generationMS = latency - supervisorMS - toolsMS - guardrailMS
		if generationMS < 0 {
			generationMS = 0
		}
	}
	breakdown := LatencyBreakdown{
		ClassificationMS: supervisorMS,
		ToolsMS:          toolsMS,
		GenerationMS:     generationMS,
		GuardrailsMS:     guardrailMS,
	}

	// 7. Review queue on low confidence.
	if o.guardrails.NeedsReview(confidence) {
		session.ReviewQueue = append(session.ReviewQueue, ReviewItem{
			Turn:            session.TurnCount,
			Intent:          string(verdict.Intent),
			Confidence:      round2(confidence),
			ResponsePreview: truncateText(agentResp.Text, 150),
			Reason:          "low_confidence",
			Timestamp:       time.Now().UTC(),
		})
	}

	// 8. Audit with redacted copies.
	entry := AuditEntry{
		Timestamp:   time.Now().UTC(),
		SessionID:   session.SessionID,
		MemberID:    session.MemberID,
		Turn:        session.TurnCount,
		UserMessage: o.guardrails.RedactPII(userMessage),
		Intent:      string(verdict.Intent),
		Agent:       agentResp.AgentName,
		ToolsCalled: toolNames(agentResp.ToolsCalled),
		RAGSources:  sourceDocs(agentResp.RAGSources),
		Response:    o.guardrails.RedactPII(truncateText(agentResp.Text, 200)),
		LatencyMS:   latency,
		Sentiment:   string(verdict.Sentiment),
	}
	session.AuditLog = append(session.AuditLog, entry)
	o.audit.Record(entry)
	o.log.InfoWithDuration(session.SessionID, "", fmt.Sprintf("turn %d: %s -> %s", session.TurnCount, verdict.Intent, agentResp.AgentName), latency, map[string]any{
		"sentiment": string(verdict.Sentiment),
	})

	if err := o.store.Save(session); err != nil {
		o.log.Error(session.SessionID, "", "failed to persist session", map[string]any{"error": err.Error()})
	}

	result := &TurnResult{
		Response:         agentResp.Text,
		Intent:           verdict.Intent,
		Agent:            agentResp.AgentName,
		ToolsCalled:      agentResp.ToolsCalled,
		RAGSources:       agentResp.RAGSources,
		TraceSteps:       allSteps,
		Escalated:        agentResp.Escalated,
		EscalationReason: agentResp.EscalationReason,
		HandoffContext:   handoff,
		Confidence:       confidence,
		Sentiment:        verdict.Sentiment,
		LatencyMS:        latency,
		LatencyBreakdown: breakdown,
		GuardrailFlags:   guardrailFlags,
	}
	o.analytics.RecordTurn(result)

	o.events.Publish(session.SessionID, EventResponseReady, map[string]any{
		"response":   result.Response,
		"intent":     string(result.Intent),
		"agent":      result.Agent,
		"escalated":  result.Escalated,
		"sentiment":  string(result.Sentiment),
		"latency_ms": result.LatencyMS,
	})

	return result, nil
}

// finishBlockedTurn handles the topic-block short circuit: the member
// gets the fixed redirect, no classification or tools run, and the turn
// is still recorded in the session and audit trail.
func (o *Orchestrator) finishBlockedTurn(session *Session, userMessage, topic string, piiFound []PIICategory, flags []GuardrailFlag) *TurnResult {
	session.AddMessage(RoleUser, userMessage)
	session.AddMessage(RoleAssistant, BlockedTopicMessage)

	flags = append(flags, GuardrailFlag{Type: "topic_blocked", Topic: topic, Action: "redirected"})

	steps := []TraceStep{
		{
			Name:     "Input Guardrails",
			StepType: StepGuardrail,
			Status:   StatusBlocked,
			Details:  map[string]any{"check": "topic_blocking", "topic": topic, "result": "BLOCKED"},
		},
	}
	if len(piiFound) > 0 {
		steps = append([]TraceStep{{
			Name:     "PII Detection",
			StepType: StepGuardrail,
			Status:   StatusWarning,
			Details:  map[string]any{"pii_types": piiCategoryNames(piiFound), "action": "redacted"},
		}}, steps...)
	}

	entry := AuditEntry{
		Timestamp:   time.Now().UTC(),
		SessionID:   session.SessionID,
		MemberID:    session.MemberID,
		Turn:        session.TurnCount,
		UserMessage: o.guardrails.RedactPII(userMessage),
		Intent:      string(IntentBlocked),
		Agent:       "guardrails",
		Response:    BlockedTopicMessage,
		Sentiment:   string(session.CurrentSentiment()),
	}
	session.AuditLog = append(session.AuditLog, entry)
	o.audit.Record(entry)

	if err := o.store.Save(session); err != nil {
		o.log.Error(session.SessionID, "", "failed to persist session", map[string]any{"error": err.Error()})
	}

	result := &TurnResult{
		Response:       BlockedTopicMessage,
		Intent:         IntentBlocked,
		Agent:          "guardrails",
		TraceSteps:     steps,
		Confidence:     1.0,
		Sentiment:      session.CurrentSentiment(),
		GuardrailFlags: flags,
	}
	o.analytics.RecordTurn(result)
	return result
}

// handleEscalation bypasses the tool loop: the escalate capability is
// invoked immediately with a synthesized summary of the last few turns.
func (o *Orchestrator) handleEscalation(ctx context.Context, history []Message) AgentResponse {
	recent := history
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	summary := ""
	for i, m := range recent {
		if i > 0 {
			summary += " | "
		}
		summary += fmt.Sprintf("%s: %s", m.Role, truncateText(m.Content, 80))
	}

	start := time.Now()
	result := o.registry.Execute(ctx, ToolEscalateToHuman, map[string]any{
		"reason":               "Member requested human agent",
		"conversation_summary": summary,
	})

	text := argString(result, "message")
	if text == "" {
		text = "You are being connected to a claims specialist now."
	}

	return AgentResponse{
		Text:      text,
		Intent:    IntentEscalate,
		AgentName: "escalation_handler",
		ToolsCalled: []ToolCall{{
			ToolName:   ToolEscalateToHuman,
			ToolInput:  map[string]any{"reason": ReasonMemberRequest},
			ToolOutput: result,
			DurationMS: time.Since(start).Milliseconds(),
		}},
		TraceSteps: []TraceStep{{
			Name:     "Tool: " + ToolEscalateToHuman,
			StepType: StepToolCall,
			Status:   StatusSuccess,
			Details:  map[string]any{"access": AccessWrite, "reason": ReasonMemberRequest},
		}},
		Escalated:        true,
		EscalationReason: ReasonMemberRequest,
	}
}

func piiCategoryNames(categories []PIICategory) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

func toolNames(calls []ToolCall) []string {
	names := make([]string, len(calls))
	for i, tc := range calls {
		names[i] = tc.ToolName
	}
	return names
}

func sourceDocs(sources []RAGSource) []string {
	docs := make([]string, len(sources))
	for i, rs := range sources {
		docs[i] = rs.SourceDoc
	}
	return docs
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

