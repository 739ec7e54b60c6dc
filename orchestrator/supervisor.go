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
	"regexp"
	"strings"

	"octank/virtual-agent/llm"
	"octank/virtual-agent/shared/logger"
)

const supervisorSystemPrompt = `You are a supervisor agent for Octank Insurance's virtual assistant. Your ONLY job is to classify the member's intent and decide which specialist agent should handle their request.

Analyze the member's message and the conversation history, then use the classify_intent tool to return your classification.

## Intent Categories

- **eligibility**: Questions about coverage, benefits, deductibles, policy details, what's covered/not covered, limits, discounts, premiums, billing
- **fnol**: Member wants to report an accident or incident, file a new claim, or report damage/theft/loss. Keywords: accident, fender bender, crash, hit, damage, stolen, vandalized, hail, file a claim
- **claim_status**: Questions about an existing claim, claim progress, timeline, adjuster info, next steps, payment status. Keywords: my claim, claim status, where is my claim, claim number, adjuster
- **general**: Greetings, general questions about Octank, questions not related to the above categories, or unclear intent
- **escalate**: Member explicitly asks to speak to a human, agent, representative, manager, or supervisor. Also if member expresses extreme frustration or anger.

## Routing Rules

1. If the member mentions an accident, incident, or wants to file/report something -> **fnol**
2. If the member asks about an existing claim or claim number -> **claim_status**
3. If the member asks about their coverage, deductible, benefits, or policy -> **eligibility**
4. If the member says "talk to a human", "speak to someone", "real person", "manager" -> **escalate**
5. If the member uses profanity or expresses extreme frustration -> **escalate**
6. For greetings or unclear messages -> **general**

## Important
- Look at the FULL conversation history, not just the last message
- If the conversation has been about FNOL and the member is providing follow-up info, keep routing to **fnol**
- If the conversation has been about claims and member asks a follow-up, keep routing to **claim_status**`

const classifyToolName = "classify_intent"

var classifyTool = llm.ToolDefinition{
	Name:        classifyToolName,
	Description: "Classify the member's intent, assess sentiment, and route to the appropriate specialist",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type":        "string",
				"enum":        []string{"eligibility", "fnol", "claim_status", "general", "escalate"},
				"description": "The classified intent",
			},
			"confidence": map[string]any{
				"type":        "number",
				"description": "Confidence score from 0.0 to 1.0",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief explanation of why this intent was chosen",
			},
			"sentiment": map[string]any{
				"type":        "string",
				"enum":        []string{"positive", "neutral", "concerned", "frustrated", "angry"},
				"description": "The member's current emotional state based on their message tone and language",
			},
		},
		"required": []string{"intent", "confidence", "reasoning", "sentiment"},
	},
}

// Classification is the supervisor's verdict for one turn.
type Classification struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
	Sentiment  Sentiment
}

// Deterministic keyword rules, checked before the model is consulted.
// Ordering is a priority: an earlier rule wins over any later one.
var (
	humanRequestRe = regexp.MustCompile(`(?i)\b(talk to a human|speak (to|with) (a human|someone|a person|an agent)|real person|human agent|(a|the) manager|(a|the) supervisor|(a|the) representative)\b`)
	profanityRe    = regexp.MustCompile(`(?i)\b(damn|dammit|hell|crap|wtf|bullshit|bs|pissed( off)?|sick of this|fed up|ridiculous|this is absurd)\b`)
	accidentRe     = regexp.MustCompile(`(?i)\b(accident|crash(ed)?|fender.?bender|rear.?ended|hit (a|my|me|by)|vandalized|stolen|theft|hail damage|file (a|my) claim|report (a|an) (claim|incident|accident))\b`)
	claimRefRe     = regexp.MustCompile(`(?i)(\bCLM-\d{4}-[0-9A-Za-z]+\b|\b(my|existing) claim\b|\bclaim (status|number|update|progress)\b|\bstatus of my claim\b|\badjuster\b)`)
	coverageRe     = regexp.MustCompile(`(?i)\b(deductible|covered|coverage|policy (details?|limits?)|my policy\b|benefits|premium|liability limit|out.?of.?pocket)\b`)
)

type keywordRule struct {
	pattern    *regexp.Regexp
	intent     Intent
	confidence float64
	sentiment  Sentiment
	reasoning  string
}

// Priority order: explicit human request, profanity or extreme
// frustration, accident mention, claim reference, coverage question.
var keywordRules = []keywordRule{
	{humanRequestRe, IntentEscalate, 0.95, SentimentFrustrated, "Member explicitly requested a human agent"},
	{profanityRe, IntentEscalate, 0.9, SentimentAngry, "Member expressed strong frustration"},
	{accidentRe, IntentFNOL, 0.9, SentimentConcerned, "Member described an accident or incident"},
	{claimRefRe, IntentClaimStatus, 0.9, SentimentNeutral, "Member referenced an existing claim"},
	{coverageRe, IntentEligibility, 0.85, SentimentNeutral, "Member asked about coverage or policy details"},
}

// Supervisor performs single-shot intent and sentiment classification
// over the full conversation history.
type Supervisor struct {
	provider llm.ChatProvider
	model    string
	log      *logger.Logger
}

func NewSupervisor(provider llm.ChatProvider, model string) *Supervisor {
	return &Supervisor{
		provider: provider,
		model:    model,
		log:      logger.New("supervisor"),
	}
}

// fallbackClassification is returned whenever a structured verdict
// cannot be obtained. It is deterministic and never fatal to the turn.
func fallbackClassification(reason string) Classification {
	return Classification{
		Intent:     IntentGeneral,
		Confidence: 0.5,
		Reasoning:  reason,
		Sentiment:  SentimentNeutral,
	}
}

// Classify resolves the intent and sentiment of the latest user message.
// Keyword rules are applied first so that high-signal messages classify
// identically on every run; only ambiguous messages reach the model.
// currentAgent, when set, biases the model toward routing continuity.
func (s *Supervisor) Classify(ctx context.Context, history []Message, currentAgent string) Classification {
	latest := latestUserText(history)

	for _, rule := range keywordRules {
		if rule.pattern.MatchString(latest) {
			s.log.Info("", "", "keyword rule matched", map[string]any{
				"intent":     string(rule.intent),
				"confidence": rule.confidence,
			})
			return Classification{
				Intent:     rule.intent,
				Confidence: rule.confidence,
				Reasoning:  rule.reasoning,
				Sentiment:  rule.sentiment,
			}
		}
	}

	system := supervisorSystemPrompt
	if currentAgent != "" {
		system += fmt.Sprintf("\n\nNote: The conversation is currently being handled by the %s. Only reclassify if the member's intent has clearly changed.", currentAgent)
	}

	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, llm.TextMessage(llm.Role(m.Role), m.Content))
	}

	resp, err := s.provider.Invoke(ctx, llm.ChatRequest{
		Model:       s.model,
		System:      system,
		Messages:    messages,
		Tools:       []llm.ToolDefinition{classifyTool},
		ToolChoice:  classifyToolName,
		MaxTokens:   512,
		Temperature: 0.0,
	})
	if err != nil {
		s.log.Warn("", "", "classification call failed, defaulting to general", map[string]any{"error": err.Error()})
		return fallbackClassification("Classification failed, defaulting to general")
	}

	for _, tr := range resp.ToolRequests {
		if tr.Name != classifyToolName {
			continue
		}
		c := Classification{
			Intent:     Intent(argString(tr.Input, "intent")),
			Confidence: argFloat(tr.Input, "confidence", 0.5),
			Reasoning:  argString(tr.Input, "reasoning"),
			Sentiment:  Sentiment(argString(tr.Input, "sentiment")),
		}
		if !ValidIntent(string(c.Intent)) {
			c.Intent = IntentGeneral
		}
		if !ValidSentiment(string(c.Sentiment)) {
			c.Sentiment = SentimentNeutral
		}
		s.log.Info("", "", "classified intent", map[string]any{
			"intent":     string(c.Intent),
			"confidence": c.Confidence,
			"sentiment":  string(c.Sentiment),
		})
		return c
	}

	s.log.Warn("", "", "no structured classification in model response", nil)
	return fallbackClassification("Classification failed, defaulting to general")
}

func latestUserText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func argFloat(input map[string]any, key string, fallback float64) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f
		}
	}
	return fallback
}
