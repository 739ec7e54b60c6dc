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
	"time"

	"octank/virtual-agent/llm"
	"octank/virtual-agent/shared/logger"
)

// FallbackText is returned when the loop cannot produce a real answer,
// either because the step budget ran out or the model became unreachable.
const FallbackText = "I apologize, but I'm having difficulty processing your request. Let me connect you with a specialist who can help."

// Escalation reasons.
const (
	ReasonMaxSteps         = "max_steps_exceeded"
	ReasonModelUnavailable = "model_unavailable"
	ReasonMemberRequest    = "member_request"
)

// AgentLoop drives the bounded tool-use conversation with the model:
// invoke, execute requested tools, feed results back, repeat until the
// model answers in plain text or the step budget runs out.
type AgentLoop struct {
	provider    llm.ChatProvider
	registry    *ToolRegistry
	model       string
	maxTokens   int
	temperature float64
	maxSteps    int
	log         *logger.Logger
}

func NewAgentLoop(provider llm.ChatProvider, registry *ToolRegistry, cfg *Config) *AgentLoop {
	return &AgentLoop{
		provider:    provider,
		registry:    registry,
		model:       cfg.SpecialistModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxSteps:    cfg.MaxAgentSteps,
		log:         logger.New("agent-loop"),
	}
}

// Run executes the specialist against the conversation history. The
// returned response is always usable: tool failures are fed back to the
// model, budget exhaustion and model outage degrade to FallbackText
// with the response marked escalated.
func (l *AgentLoop) Run(ctx context.Context, spec Specialist, member Member, history []Message) AgentResponse {
	start := time.Now()

	working := make([]llm.Message, 0, len(history)+2*l.maxSteps)
	for _, m := range history {
		working = append(working, llm.TextMessage(llm.Role(m.Role), m.Content))
	}
	tools := l.registry.Definitions(spec.Tools...)

	resp := AgentResponse{
		Intent:    spec.Intent,
		AgentName: spec.Name,
	}
	resp.TraceSteps = append(resp.TraceSteps, TraceStep{
		Name:     spec.Name + " started",
		StepType: StepSpecialist,
		Status:   StatusSuccess,
		Details: map[string]any{
			"model":           l.model,
			"tools_available": spec.Tools,
		},
	})

	for step := 0; step < l.maxSteps; step++ {
		l.log.Info("", "", "agent step", map[string]any{"agent": spec.Name, "step": step + 1, "max": l.maxSteps})

		modelStart := time.Now()
		chat, err := l.provider.Invoke(ctx, llm.ChatRequest{
			Model:       l.model,
			System:      spec.SystemPrompt(member),
			Messages:    working,
			Tools:       tools,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		})
		modelMS := time.Since(modelStart).Milliseconds()
		resp.GenerationMS += modelMS

		if err != nil {
			l.log.Error("", "", "model invocation failed", map[string]any{"agent": spec.Name, "error": err.Error()})
			resp.TraceSteps = append(resp.TraceSteps, TraceStep{
				Name:       "Model unavailable",
				StepType:   StepEscalation,
				DurationMS: modelMS,
				Status:     StatusError,
				Details:    map[string]any{"step": step + 1},
			})
			resp.Text = FallbackText
			resp.Escalated = true
			resp.EscalationReason = ReasonModelUnavailable
			resp.LatencyMS = time.Since(start).Milliseconds()
			return resp
		}

		if len(chat.ToolRequests) == 0 {
			resp.TraceSteps = append(resp.TraceSteps, TraceStep{
				Name:       "Response generated",
				StepType:   StepSpecialist,
				DurationMS: modelMS,
				Status:     StatusSuccess,
				Details:    map[string]any{"step": step + 1, "response_length": len(chat.Text)},
			})
			resp.Text = chat.Text
			resp.LatencyMS = time.Since(start).Milliseconds()
			return resp
		}

		working = append(working, llm.Message{Role: llm.RoleAssistant, Content: chat.AssistantContent})

		results := make([]llm.ContentBlock, 0, len(chat.ToolRequests))
		for _, tr := range chat.ToolRequests {
			l.log.Info("", "", "calling tool", map[string]any{"agent": spec.Name, "tool": tr.Name})

			toolStart := time.Now()
			result := l.registry.Execute(ctx, tr.Name, tr.Input)
			toolMS := time.Since(toolStart).Milliseconds()
			resp.ToolsMS += toolMS

			resp.ToolsCalled = append(resp.ToolsCalled, ToolCall{
				ToolName:   tr.Name,
				ToolInput:  tr.Input,
				ToolOutput: result,
				DurationMS: toolMS,
			})

			stepType := StepToolCall
			if tr.Name == ToolSearchKnowledgeBase {
				stepType = StepRAGSearch
			}
			status := StatusSuccess
			if IsErrorResult(result) {
				status = StatusError
			}
			resp.TraceSteps = append(resp.TraceSteps, TraceStep{
				Name:       "Tool: " + tr.Name,
				StepType:   stepType,
				DurationMS: toolMS,
				Status:     status,
				Details: map[string]any{
					"input":  truncateValues(tr.Input, 80),
					"access": l.registry.Access(tr.Name),
				},
			})

			if tr.Name == ToolSearchKnowledgeBase {
				resp.RAGSources = append(resp.RAGSources, ragSourcesFromResult(result)...)
			}
			if tr.Name == ToolEscalateToHuman {
				resp.Escalated = true
				resp.EscalationReason = argString(tr.Input, "reason")
			}

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"error":"failed to encode tool result"}`)
			}
			results = append(results, llm.ContentBlock{
				Type:      llm.BlockToolResult,
				ToolUseID: tr.ID,
				Content:   string(payload),
				IsError:   IsErrorResult(result),
			})
		}
		working = append(working, llm.Message{Role: llm.RoleUser, Content: results})
	}

	l.log.Warn("", "", "step budget exhausted", map[string]any{"agent": spec.Name, "max_steps": l.maxSteps})
	resp.TraceSteps = append(resp.TraceSteps, TraceStep{
		Name:     "Max steps exceeded",
		StepType: StepEscalation,
		Status:   StatusError,
		Details:  map[string]any{"max_steps": l.maxSteps},
	})
	resp.Text = FallbackText
	resp.Escalated = true
	resp.EscalationReason = ReasonMaxSteps
	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp
}

// ragSourcesFromResult lifts the knowledge tool's result rows into
// RAGSource values, one per ranked chunk.
func ragSourcesFromResult(result map[string]any) []RAGSource {
	rows, ok := result["results"].([]map[string]any)
	if !ok {
		return nil
	}
	sources := make([]RAGSource, 0, len(rows))
	for _, row := range rows {
		score, _ := row["relevance_score"].(float64)
		sources = append(sources, RAGSource{
			ChunkText:      argString(row, "chunk_text"),
			SourceDoc:      argString(row, "source_doc"),
			Heading:        argString(row, "heading"),
			RelevanceScore: score,
		})
	}
	return sources
}

// truncateValues renders a tool input for trace details with each value
// capped so traces stay readable and never carry whole documents.
func truncateValues(input map[string]any, limit int) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		s := fmt.Sprint(v)
		if len(s) > limit {
			s = s[:limit]
		}
		out[k] = s
	}
	return out
}
