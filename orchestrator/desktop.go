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
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"octank/virtual-agent/llm"
	"octank/virtual-agent/rag"
	"octank/virtual-agent/shared/logger"
)

// DesktopAction is one tool action surfaced on the agent desktop.
type DesktopAction struct {
	Tool        string `json:"tool"`
	Description string `json:"description"`
	Turn        int    `json:"turn"`
	Intent      string `json:"intent"`
}

// DesktopBriefing is the full context package handed to a human agent
// taking over a conversation.
type DesktopBriefing struct {
	SessionID          string          `json:"session_id"`
	Member             Member          `json:"member"`
	SentimentHistory   []Sentiment     `json:"sentiment_history"`
	CurrentSentiment   Sentiment       `json:"current_sentiment"`
	Conversation       []Message       `json:"conversation"`
	AISummary          string          `json:"ai_summary"`
	ActionsTaken       []DesktopAction `json:"actions_taken"`
	KnowledgeRetrieved []RAGRecord     `json:"knowledge_retrieved"`
	KnowledgeProactive []rag.Result    `json:"knowledge_proactive"`
	SuggestedActions   []string        `json:"suggested_actions"`
	OpenQuestions      []string        `json:"open_questions"`
	Escalation         map[string]any  `json:"escalation"`
	SessionMeta        map[string]any  `json:"session_meta"`
}

// DesktopAssembler builds hand-off briefings. Its model calls and the
// proactive retrieval are independent reads of the session, so they run
// concurrently.
type DesktopAssembler struct {
	provider  llm.ChatProvider
	retriever *rag.Retriever
	model     string
	log       *logger.Logger
}

func NewDesktopAssembler(provider llm.ChatProvider, retriever *rag.Retriever, model string) *DesktopAssembler {
	return &DesktopAssembler{
		provider:  provider,
		retriever: retriever,
		model:     model,
		log:       logger.New("agent-desktop"),
	}
}

var toolDescriptions = map[string]string{
	ToolGetEligibility:      "Checked member coverage and eligibility details",
	ToolGetClaimStatus:      "Retrieved claim status and timeline",
	ToolCreateFNOL:          "Filed a First Notice of Loss claim",
	ToolSearchKnowledgeBase: "Searched policy knowledge base",
	ToolEscalateToHuman:     "Escalated conversation to human agent",
	ToolScheduleCallback:    "Scheduled a callback for the member",
}

func describeTool(name string) string {
	if d, ok := toolDescriptions[name]; ok {
		return d
	}
	return "Called " + name
}

// Assemble builds the briefing. The summary, guidance, and proactive
// retrieval calls run in parallel; each has its own degraded fallback
// so one failure never empties the whole package.
func (d *DesktopAssembler) Assemble(ctx context.Context, session *Session) *DesktopBriefing {
	start := time.Now()

	var (
		wg        sync.WaitGroup
		summary   string
		actions   []string
		questions []string
		proactive []rag.Result
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		summary = d.generateSummary(ctx, session)
	}()
	go func() {
		defer wg.Done()
		actions, questions = d.generateGuidance(ctx, session)
	}()
	go func() {
		defer wg.Done()
		proactive = d.proactiveRetrieval(session)
	}()
	wg.Wait()

	var actionsTaken []DesktopAction
	for _, entry := range session.AuditLog {
		for _, tool := range entry.ToolsCalled {
			actionsTaken = append(actionsTaken, DesktopAction{
				Tool:        tool,
				Description: describeTool(tool),
				Turn:        entry.Turn,
				Intent:      entry.Intent,
			})
		}
	}

	// Specialists that lean on member-specific tools often never touch
	// the knowledge base; run a contextual search so the human still
	// sees relevant policy documents.
	knowledge := session.RAGHistory
	if len(knowledge) == 0 {
		knowledge = d.contextualRetrieval(session)
	}

	escalation := map[string]any{}
	if session.Escalated {
		escalation = map[string]any{
			"escalated": true,
			"reason":    session.CurrentIntent,
			"turn":      session.TurnCount,
		}
		if len(session.AuditLog) > 0 {
			escalation["timestamp"] = session.AuditLog[len(session.AuditLog)-1].Timestamp
		}
	}

	assemblyMS := time.Since(start).Milliseconds()
	d.log.InfoWithDuration(session.SessionID, "", "desktop context assembled", assemblyMS, nil)

	return &DesktopBriefing{
		SessionID:          session.SessionID,
		Member:             session.Member,
		SentimentHistory:   session.SentimentHistory,
		CurrentSentiment:   session.CurrentSentiment(),
		Conversation:       session.Messages,
		AISummary:          summary,
		ActionsTaken:       actionsTaken,
		KnowledgeRetrieved: knowledge,
		KnowledgeProactive: proactive,
		SuggestedActions:   actions,
		OpenQuestions:      questions,
		Escalation:         escalation,
		SessionMeta: map[string]any{
			"created_at":       session.CreatedAt,
			"turn_count":       session.TurnCount,
			"current_intent":   session.CurrentIntent,
			"current_agent":    session.CurrentAgent,
			"tools_used_count": len(session.ToolsCalled),
			"assembly_ms":      assemblyMS,
		},
	}
}

func (d *DesktopAssembler) generateSummary(ctx context.Context, session *Session) string {
	var convo strings.Builder
	for _, m := range session.Messages {
		fmt.Fprintf(&convo, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
	}
	sentiments := "neutral"
	if len(session.SentimentHistory) > 0 {
		parts := make([]string, len(session.SentimentHistory))
		for i, s := range session.SentimentHistory {
			parts[i] = string(s)
		}
		sentiments = strings.Join(parts, ", ")
	}

	prompt := fmt.Sprintf(`You are preparing a briefing for a human insurance agent who is about to take over this conversation.

Member: %s (ID: %s)
Policy: %s (%s)

Conversation:
%s
Sentiment progression: %s

Write a 3-5 sentence briefing covering:
1. WHO the member is and their policy type
2. WHAT they needed help with
3. WHAT the AI agent did (tools used, information provided)
4. WHAT is still unresolved or why they were escalated
5. The member's EMOTIONAL STATE

Be concise and actionable. Write in third person.`,
		session.Member.Name, session.MemberID,
		session.Member.PolicyNumber, session.Member.PolicyType,
		convo.String(), sentiments)

	resp, err := d.provider.Invoke(ctx, llm.ChatRequest{
		Model:       d.model,
		Messages:    []llm.Message{llm.TextMessage(llm.RoleUser, prompt)},
		MaxTokens:   400,
		Temperature: 0.2,
	})
	if err != nil {
		d.log.Error(session.SessionID, "", "summary generation failed", map[string]any{"error": err.Error()})
		recent := session.Messages
		if len(recent) > 6 {
			recent = recent[len(recent)-6:]
		}
		parts := make([]string, len(recent))
		for i, m := range recent {
			parts[i] = fmt.Sprintf("%s: %s", m.Role, truncateText(m.Content, 80))
		}
		return "AI summary unavailable. Recent conversation: " + strings.Join(parts, " | ")
	}
	return strings.TrimSpace(resp.Text)
}

func (d *DesktopAssembler) generateGuidance(ctx context.Context, session *Session) (suggested, open []string) {
	recent := session.Messages
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	var convo strings.Builder
	for _, m := range recent {
		fmt.Fprintf(&convo, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
	}
	toolsUsed := "none"
	if len(session.ToolsCalled) > 0 {
		toolsUsed = strings.Join(session.ToolsCalled, ", ")
	}

	prompt := fmt.Sprintf(`You are an AI assistant helping a human insurance agent prepare to handle this conversation.

Member: %s
Policy type: %s
Tools already used by AI: %s
Current intent: %s

Recent conversation:
%s
Provide TWO sections in valid JSON format:

{
  "suggested_actions": [
    "3-5 specific, actionable next steps the human agent should take"
  ],
  "open_questions": [
    "2-4 unresolved items or questions the agent should address"
  ]
}

Be specific to this member's situation. Use imperative verbs (e.g., "Review...", "Confirm...", "Offer...").`,
		session.Member.Name, session.Member.PolicyType, toolsUsed, session.CurrentIntent, convo.String())

	fallbackSuggested := []string{
		"Review conversation history",
		"Address member's primary concern",
		"Check if additional follow-up needed",
	}
	fallbackOpen := []string{"What is the member's primary unresolved issue?"}

	resp, err := d.provider.Invoke(ctx, llm.ChatRequest{
		Model:       d.model,
		Messages:    []llm.Message{llm.TextMessage(llm.RoleUser, prompt)},
		MaxTokens:   500,
		Temperature: 0.2,
	})
	if err != nil {
		d.log.Error(session.SessionID, "", "guidance generation failed", map[string]any{"error": err.Error()})
		return fallbackSuggested, fallbackOpen
	}

	text := strings.TrimSpace(resp.Text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fallbackSuggested, fallbackOpen
	}
	var parsed struct {
		SuggestedActions []string `json:"suggested_actions"`
		OpenQuestions    []string `json:"open_questions"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		d.log.Error(session.SessionID, "", "guidance parse failed", map[string]any{"error": err.Error()})
		return fallbackSuggested, fallbackOpen
	}
	return parsed.SuggestedActions, parsed.OpenQuestions
}

// proactiveRetrieval runs a fresh search over the whole conversation so
// the human sees current policy context, full chunk text included.
func (d *DesktopAssembler) proactiveRetrieval(session *Session) []rag.Result {
	query := recentUserText(session, 5)
	if query == "" {
		return nil
	}
	return d.retriever.Search(query, 6)
}

// contextualRetrieval searches with an intent-specific boost when the
// specialist never called the knowledge tool itself.
func (d *DesktopAssembler) contextualRetrieval(session *Session) []RAGRecord {
	boosts := map[string]string{
		"eligibility":  "coverage eligibility deductible benefits",
		"fnol":         "claim filing accident loss damage",
		"claim_status": "claim status timeline adjuster",
	}
	query := strings.TrimSpace(recentUserText(session, 5) + " " + boosts[session.CurrentIntent])
	if query == "" {
		return nil
	}

	results := d.retriever.Search(query, 5)
	records := make([]RAGRecord, 0, len(results))
	for _, r := range results {
		records = append(records, RAGRecord{
			SourceDoc:      r.SourceDoc,
			Heading:        r.Heading,
			ChunkText:      r.ChunkText,
			RelevanceScore: r.RelevanceScore,
			Intent:         session.CurrentIntent,
		})
	}
	return records
}

func recentUserText(session *Session, n int) string {
	var userMessages []string
	for _, m := range session.Messages {
		if m.Role == RoleUser {
			userMessages = append(userMessages, m.Content)
		}
	}
	if len(userMessages) > n {
		userMessages = userMessages[len(userMessages)-n:]
	}
	return strings.TrimSpace(strings.Join(userMessages, " "))
}
